package domain

import (
	"fmt"
	"time"
)

// ChunkType classifies what kind of linguistic knowledge an entry carries.
type ChunkType string

const (
	ChunkTypeVocabulary      ChunkType = "vocabulary"
	ChunkTypeGrammarRule     ChunkType = "grammar_rule"
	ChunkTypeCulturalNote    ChunkType = "cultural_note"
	ChunkTypeExampleDialogue ChunkType = "example_dialogue"
	ChunkTypeTranslationPair ChunkType = "translation_pair"
)

// VerificationStatus is a knowledge entry's trust tier. It only ever moves
// up the ladder as human review accumulates.
type VerificationStatus string

const (
	VerificationSeed         VerificationStatus = "seed"
	VerificationSingle       VerificationStatus = "single_annotator"
	VerificationMulti        VerificationStatus = "multi_annotator_verified"
	VerificationExpertReview VerificationStatus = "expert_reviewed"
)

// VerificationRank maps a status to its position on the trust ladder.
// Used both for the monotonicity check and as a deterministic ranking
// boost in retrieval.
func VerificationRank(s VerificationStatus) int {
	switch s {
	case VerificationSeed:
		return 0
	case VerificationSingle:
		return 1
	case VerificationMulti:
		return 2
	case VerificationExpertReview:
		return 3
	}
	return -1
}

// NextVerification returns the status one rung above s. Expert-reviewed is
// the top of the ladder.
func NextVerification(s VerificationStatus) VerificationStatus {
	switch s {
	case VerificationSeed:
		return VerificationSingle
	case VerificationSingle:
		return VerificationMulti
	default:
		return VerificationExpertReview
	}
}

// KnowledgeEntry represents one versioned unit of linguistic knowledge.
// Superseded versions are never mutated; edits create a new entry pointing
// back through SupersedesID, and the prior content lands in the history
// ledger.
type KnowledgeEntry struct {
	ID           string
	Language     string
	ChunkType    ChunkType
	Topic        string
	Content      string
	Source       string
	Verification VerificationStatus
	Embedding    []float32
	SupersedesID string
	Superseded   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// KnowledgeHistory is one append-only ledger record of a superseded version.
type KnowledgeHistory struct {
	ID           string
	EntryID      string
	PriorContent string
	EditedBy     string
	Reason       string
	At           time.Time
}

// ValidateKnowledgeEntry validates a KnowledgeEntry instance
func ValidateKnowledgeEntry(k *KnowledgeEntry) error {
	if k == nil {
		return fmt.Errorf("knowledge entry cannot be nil")
	}

	if k.ID == "" {
		return fmt.Errorf("knowledge entry ID is required")
	}

	if k.Language == "" {
		return fmt.Errorf("knowledge entry Language is required")
	}

	if k.Content == "" {
		return fmt.Errorf("knowledge entry Content is required")
	}

	if !isValidChunkType(k.ChunkType) {
		return fmt.Errorf("knowledge entry ChunkType is invalid: %s", k.ChunkType)
	}

	if VerificationRank(k.Verification) < 0 {
		return fmt.Errorf("knowledge entry Verification is invalid: %s", k.Verification)
	}

	return nil
}

// isValidChunkType checks if a ChunkType is valid
func isValidChunkType(t ChunkType) bool {
	switch t {
	case ChunkTypeVocabulary, ChunkTypeGrammarRule, ChunkTypeCulturalNote,
		ChunkTypeExampleDialogue, ChunkTypeTranslationPair:
		return true
	}
	return false
}
