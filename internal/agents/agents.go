// Package agents defines the translator and reviewer contracts of the
// response pipeline, plus their OpenAI-backed implementations. The
// orchestrator only sees these interfaces, so fakes can stand in for real
// models in tests.
package agents

import (
	"context"
	"time"

	"github.com/sauti-labs/lugha/internal/domain"
)

// TranslationRequest carries everything the translator needs for one
// generation attempt.
type TranslationRequest struct {
	Message  string
	Language string
	History  []*domain.ConversationMessage
	Snippets []*domain.KnowledgeEntry

	// Feedback holds the reviewer's reasoning when the orchestrator asks
	// for one corrective regeneration. Empty on the first attempt.
	Feedback string
}

// Translation is the candidate answer plus grounding metadata.
type Translation struct {
	Text             string
	KnowledgeIDsUsed []string
	UsedKnowledge    bool
	SelfConfidence   domain.SelfConfidence
	Model            string
	Latency          time.Duration
}

// Translator produces a candidate answer in the target language.
type Translator interface {
	Translate(ctx context.Context, req TranslationRequest) (*Translation, error)
}

// ReviewRequest carries the candidate answer and the evidence it was
// generated from.
type ReviewRequest struct {
	Message         string
	CandidateAnswer string
	Language        string
	KnowledgeUsed   []*domain.KnowledgeEntry
}

// Review is the reviewer's verdict. Judgment is always normalized; RawOutput
// preserves the model's literal response for the audit trail.
type Review struct {
	Judgment  domain.Judgment
	RawOutput string
	Latency   time.Duration
}

// Reviewer judges a candidate answer. Implementations must not surface
// parse failures as errors; an unparseable response becomes the fallback
// judgment. Transport errors and timeouts are returned as errors and
// normalized by the caller.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) (*Review, error)
}
