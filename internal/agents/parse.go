package agents

import (
	"encoding/json"
	"strings"

	"github.com/sauti-labs/lugha/internal/domain"
)

const (
	passThreshold        = 70
	noKnowledgeCap       = 60
	hallucinationPenalty = 20
	fallbackScore        = 30
)

// rawJudgment is the shape the reviewer model is asked to emit. Models wrap
// it in prose or code fences often enough that parsing is best-effort.
type rawJudgment struct {
	Passed      bool     `json:"passed"`
	Score       int      `json:"score"`
	Reasoning   string   `json:"reasoning"`
	GapCategory string   `json:"gap_category,omitempty"`
	Issues      []string `json:"issues"`
}

// ParseJudgment extracts a judgment from raw model output and normalizes it.
// Parse strategy: direct JSON first, then the first fenced block; if both
// fail the fixed low-confidence fallback is returned so a sloppy model can
// never crash the pipeline.
func ParseJudgment(raw string, usedKnowledge bool) domain.Judgment {
	parsed, ok := tryParse(raw)
	if !ok {
		return FallbackJudgment("reviewer output could not be parsed")
	}
	return normalize(parsed, usedKnowledge)
}

// FallbackJudgment is the fixed judgment substituted for unparseable,
// timed-out, or failed reviewer calls. It always escalates.
func FallbackJudgment(reason string) domain.Judgment {
	return domain.Judgment{
		Passed:    false,
		Score:     fallbackScore,
		Reasoning: reason,
		Issues:    []string{domain.IssueUnparseableReview},
	}
}

func tryParse(raw string) (rawJudgment, bool) {
	var parsed rawJudgment

	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		return parsed, true
	}

	fenced, ok := extractFencedBlock(trimmed)
	if !ok {
		return rawJudgment{}, false
	}
	if err := json.Unmarshal([]byte(fenced), &parsed); err != nil {
		return rawJudgment{}, false
	}
	return parsed, true
}

// extractFencedBlock returns the contents of the first ``` fence, stripping
// an optional language tag on the opening line.
func extractFencedBlock(raw string) (string, bool) {
	start := strings.Index(raw, "```")
	if start < 0 {
		return "", false
	}
	rest := raw[start+3:]

	if newline := strings.IndexByte(rest, '\n'); newline >= 0 {
		firstLine := strings.TrimSpace(rest[:newline])
		if firstLine == "" || isFenceTag(firstLine) {
			rest = rest[newline+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func isFenceTag(line string) bool {
	for _, r := range line {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// normalize applies the audit rules, in order, identically regardless of
// which model produced the review:
//  1. clamp score to [0,100]
//  2. potential hallucination costs 20 points and fails the review
//  3. an ungrounded answer is capped at 60
//  4. passing requires score >= 70 and no critical issue
//  5. the gap category is only retained on a failed review
func normalize(raw rawJudgment, usedKnowledge bool) domain.Judgment {
	j := domain.Judgment{
		Score:     clampScore(raw.Score),
		Reasoning: raw.Reasoning,
		Issues:    raw.Issues,
	}

	if j.HasIssue(domain.IssuePotentialHallucination) {
		j.Score = clampScore(j.Score - hallucinationPenalty)
	}

	if !usedKnowledge && j.Score > noKnowledgeCap {
		j.Score = noKnowledgeCap
	}

	j.Passed = j.Score >= passThreshold && !j.HasCriticalIssue()

	if !j.Passed && raw.GapCategory != "" {
		gap := domain.GapCategory(raw.GapCategory)
		if domain.IsValidGapCategory(gap) {
			j.GapCategory = gap
		}
	}

	return j
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
