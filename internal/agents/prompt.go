package agents

import (
	"fmt"
	"strings"

	"github.com/sauti-labs/lugha/internal/domain"
	"github.com/sauti-labs/lugha/internal/openai"
)

const translatorSystemPrompt = "You are a cultural and linguistic expert. " +
	"Respond naturally and authentically in the requested language or about the requested culture. " +
	"If you are uncertain about something, say so explicitly."

const reviewerSystemPrompt = "You are a strict quality reviewer for language-learning answers. " +
	"You respond with a single JSON object and nothing else."

// buildTranslatorPrompt assembles the generation instructions: target
// language and register, the grounding rules, and the retrieved snippets
// verbatim (or an explicit statement that none were found).
func buildTranslatorPrompt(req TranslationRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Answer the learner's message in %s, using the cultural register a native speaker would use.\n", req.Language)
	b.WriteString("Rules:\n")
	b.WriteString("- Never fabricate vocabulary, grammar, or cultural claims.\n")
	b.WriteString("- If you are not sure about something, state your uncertainty explicitly.\n\n")

	if len(req.Snippets) > 0 {
		b.WriteString("Reference material (quote or adapt, but do not contradict):\n")
		for i, snippet := range req.Snippets {
			fmt.Fprintf(&b, "%d. [%s/%s] %s\n", i+1, snippet.ChunkType, snippet.Topic, snippet.Content)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No reference material was found for this request. Rely only on what you are certain of and say so when you are not.\n\n")
	}

	if req.Feedback != "" {
		fmt.Fprintf(&b, "A reviewer flagged your previous answer:\n%s\nAddress this feedback in your new answer.\n\n", req.Feedback)
	}

	fmt.Fprintf(&b, "Learner message:\n%s", req.Message)
	return b.String()
}

// buildReviewerPrompt asks for the structured verdict. The snippet list lets
// the reviewer check grounding claims against what was actually retrieved.
func buildReviewerPrompt(req ReviewRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Review this answer to a learner of %s.\n\n", req.Language)
	fmt.Fprintf(&b, "Learner message:\n%s\n\n", req.Message)
	fmt.Fprintf(&b, "Candidate answer:\n%s\n\n", req.CandidateAnswer)

	if len(req.KnowledgeUsed) > 0 {
		b.WriteString("Knowledge the answer was grounded on:\n")
		for i, snippet := range req.KnowledgeUsed {
			fmt.Fprintf(&b, "%d. [%s/%s] %s\n", i+1, snippet.ChunkType, snippet.Topic, snippet.Content)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("The answer was generated without any retrieved knowledge.\n\n")
	}

	b.WriteString("Respond with exactly one JSON object:\n")
	b.WriteString(`{"passed": bool, "score": 0-100, "reasoning": string, "issues": [string], "gap_category": string|omit}` + "\n")
	fmt.Fprintf(&b, "Allowed issues include: %s, %s, %s, awkward_phrasing, register_mismatch.\n",
		domain.IssuePotentialHallucination, domain.IssueCulturalInsensitivity, domain.IssueFactualError)
	fmt.Fprintf(&b, "Allowed gap_category values: %s, %s, %s, %s.\n",
		domain.GapMissingVocabulary, domain.GapMissingCulturalContext, domain.GapMissingDialect, domain.GapMissingTranslationPair)
	b.WriteString("Only set gap_category when the answer fails because knowledge was missing.")
	return b.String()
}

func historyMessages(history []*domain.ConversationMessage) []openai.ChatMessage {
	turns := make([]openai.ChatMessage, 0, len(history))
	for _, msg := range history {
		role := openai.RoleUser
		if msg.Role == domain.RoleAssistant {
			role = openai.RoleAssistant
		}
		turns = append(turns, openai.ChatMessage{Role: role, Content: msg.Content})
	}
	return turns
}
