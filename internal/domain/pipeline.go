package domain

import (
	"fmt"
	"time"
)

// Disposition is the final outcome of a pipeline run.
type Disposition string

const (
	DispositionReturned  Disposition = "returned"
	DispositionEscalated Disposition = "escalated"
)

// SelfConfidence is the translator's deterministic self-report.
type SelfConfidence string

const (
	SelfConfidenceHigh   SelfConfidence = "high"
	SelfConfidenceMedium SelfConfidence = "medium"
	SelfConfidenceLow    SelfConfidence = "low"
)

// GapCategory classifies why knowledge was insufficient. Closed set.
type GapCategory string

const (
	GapMissingVocabulary      GapCategory = "missing_vocabulary"
	GapMissingCulturalContext GapCategory = "missing_cultural_context"
	GapMissingDialect         GapCategory = "missing_dialect_knowledge"
	GapMissingTranslationPair GapCategory = "missing_translation_pair"
)

// GapSeverity orders gap categories for queue prioritization; lower sorts
// first. Cultural gaps outrank vocabulary because they carry the highest
// risk of an offensive answer.
func GapSeverity(g GapCategory) int {
	switch g {
	case GapMissingCulturalContext:
		return 0
	case GapMissingDialect:
		return 1
	case GapMissingTranslationPair:
		return 2
	case GapMissingVocabulary:
		return 3
	}
	return 4
}

// IsValidGapCategory checks membership in the closed gap-category set.
func IsValidGapCategory(g GapCategory) bool {
	switch g {
	case GapMissingVocabulary, GapMissingCulturalContext, GapMissingDialect, GapMissingTranslationPair:
		return true
	}
	return false
}

// Reviewer issue tags. The critical ones force a failed review regardless
// of score.
const (
	IssuePotentialHallucination = "potential_hallucination"
	IssueCulturalInsensitivity  = "cultural_insensitivity"
	IssueFactualError           = "factual_error"
	IssueUnparseableReview      = "unparseable_review"
)

// IsCriticalIssue reports whether an issue tag blocks a passing review.
func IsCriticalIssue(issue string) bool {
	switch issue {
	case IssuePotentialHallucination, IssueCulturalInsensitivity, IssueFactualError:
		return true
	}
	return false
}

// Judgment is the reviewer's normalized structured verdict on a candidate
// answer.
type Judgment struct {
	Passed      bool
	Score       int
	Reasoning   string
	Issues      []string
	GapCategory GapCategory
}

// HasCriticalIssue reports whether any issue in the judgment is critical.
func (j Judgment) HasCriticalIssue() bool {
	for _, issue := range j.Issues {
		if IsCriticalIssue(issue) {
			return true
		}
	}
	return false
}

// HasIssue reports whether the judgment carries the given issue tag.
func (j Judgment) HasIssue(issue string) bool {
	for _, i := range j.Issues {
		if i == issue {
			return true
		}
	}
	return false
}

// PipelineRun is the append-only audit record of one pass through the
// pipeline. Never mutated after creation.
type PipelineRun struct {
	ID                string
	MessageID         string
	TranslatorModel   string
	TranslatorOutput  string
	TranslatorLatency time.Duration
	ReviewerOutput    string
	ReviewerLatency   time.Duration
	Judgment          Judgment
	CompositeScore    int
	KnowledgeIDsUsed  []string
	RetryCount        int
	Disposition       Disposition
	CreatedAt         time.Time
}

// ValidatePipelineRun validates a PipelineRun instance
func ValidatePipelineRun(r *PipelineRun) error {
	if r == nil {
		return fmt.Errorf("pipeline run cannot be nil")
	}

	if r.ID == "" {
		return fmt.Errorf("pipeline run ID is required")
	}

	if r.MessageID == "" {
		return fmt.Errorf("pipeline run MessageID is required")
	}

	if r.RetryCount < 0 || r.RetryCount > 1 {
		return fmt.Errorf("pipeline run RetryCount must be 0 or 1, got %d", r.RetryCount)
	}

	if r.Disposition != DispositionReturned && r.Disposition != DispositionEscalated {
		return fmt.Errorf("pipeline run Disposition is invalid: %s", r.Disposition)
	}

	return nil
}
