package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChunkTypeConstants(t *testing.T) {
	tests := []struct {
		name     string
		typeVal  ChunkType
		expected string
	}{
		{"Vocabulary", ChunkTypeVocabulary, "vocabulary"},
		{"GrammarRule", ChunkTypeGrammarRule, "grammar_rule"},
		{"CulturalNote", ChunkTypeCulturalNote, "cultural_note"},
		{"ExampleDialogue", ChunkTypeExampleDialogue, "example_dialogue"},
		{"TranslationPair", ChunkTypeTranslationPair, "translation_pair"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.typeVal))
		})
	}
}

func TestVerificationRankOrdering(t *testing.T) {
	assert.Less(t, VerificationRank(VerificationSeed), VerificationRank(VerificationSingle))
	assert.Less(t, VerificationRank(VerificationSingle), VerificationRank(VerificationMulti))
	assert.Less(t, VerificationRank(VerificationMulti), VerificationRank(VerificationExpertReview))
	assert.Equal(t, -1, VerificationRank(VerificationStatus("unknown")))
}

func TestNextVerificationIsMonotone(t *testing.T) {
	statuses := []VerificationStatus{
		VerificationSeed,
		VerificationSingle,
		VerificationMulti,
		VerificationExpertReview,
	}

	for _, s := range statuses {
		next := NextVerification(s)
		assert.GreaterOrEqual(t, VerificationRank(next), VerificationRank(s),
			"upgrade from %s must not decrease rank", s)
	}

	// Top of the ladder stays put
	assert.Equal(t, VerificationExpertReview, NextVerification(VerificationExpertReview))
}

func TestValidateKnowledgeEntry(t *testing.T) {
	now := time.Now()
	valid := &KnowledgeEntry{
		ID:           "k1",
		Language:     "swahili",
		ChunkType:    ChunkTypeVocabulary,
		Topic:        "greetings",
		Content:      "Habari means 'news' and is a common greeting.",
		Source:       "seed_corpus",
		Verification: VerificationSeed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	assert.NoError(t, ValidateKnowledgeEntry(valid))

	tests := []struct {
		name   string
		mutate func(k *KnowledgeEntry)
	}{
		{"NilEntry", nil},
		{"MissingID", func(k *KnowledgeEntry) { k.ID = "" }},
		{"MissingLanguage", func(k *KnowledgeEntry) { k.Language = "" }},
		{"MissingContent", func(k *KnowledgeEntry) { k.Content = "" }},
		{"BadChunkType", func(k *KnowledgeEntry) { k.ChunkType = "poetry" }},
		{"BadVerification", func(k *KnowledgeEntry) { k.Verification = "probably_fine" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.mutate == nil {
				assert.Error(t, ValidateKnowledgeEntry(nil))
				return
			}
			entry := *valid
			tt.mutate(&entry)
			assert.Error(t, ValidateKnowledgeEntry(&entry))
		})
	}
}
