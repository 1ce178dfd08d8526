package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sauti-labs/lugha/internal/domain"
)

const topicMaxLength = 120

// captureKnowledge turns a human-verified answer into a new knowledge entry
// at single_annotator trust, plus a queued embedding job so it becomes
// retrievable. Runs inside the resolution transaction.
func (r *Resolver) captureKnowledge(ctx context.Context, repos TxRepositories, item *domain.EscalationItem, answer string, now time.Time) error {
	entry := &domain.KnowledgeEntry{
		ID:           r.uuidGen.NewString(),
		Language:     item.Language,
		ChunkType:    chunkTypeForGap(item.GapCategory),
		Topic:        truncateTopic(item.LearnerRequest),
		Content:      fmt.Sprintf("Learner asked: %s\nVerified answer: %s", item.LearnerRequest, answer),
		Source:       "escalation_review",
		Verification: domain.VerificationSingle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repos.Knowledge().Create(ctx, entry); err != nil {
		return err
	}

	job := &domain.EmbeddingJob{
		ID:        r.uuidGen.NewString(),
		EntryID:   entry.ID,
		Status:    domain.EmbeddingJobStatusPending,
		CreatedAt: now,
	}
	return repos.EmbeddingJobs().Create(ctx, job)
}

// confirmUsedKnowledge moves every entry that grounded an approved answer one
// rung up the verification ladder. The ladder is monotone, so concurrent
// upgrades can only help; a downgrade rejection is ignored.
func (r *Resolver) confirmUsedKnowledge(ctx context.Context, repos TxRepositories, runID string) error {
	run, err := r.runs.GetByID(ctx, runID)
	if err != nil {
		return err
	}

	for _, entryID := range run.KnowledgeIDsUsed {
		entry, err := repos.Knowledge().GetByID(ctx, entryID)
		if err != nil {
			if errors.Is(err, domain.ErrKnowledgeEntryNotFound) {
				continue
			}
			return err
		}

		next := domain.NextVerification(entry.Verification)
		if next == entry.Verification {
			continue
		}
		if err := repos.Knowledge().UpgradeVerification(ctx, entryID, next); err != nil {
			if errors.Is(err, domain.ErrVerificationDowngrade) {
				continue
			}
			return err
		}
	}
	return nil
}

// chunkTypeForGap maps the reviewer's gap diagnosis to the kind of knowledge
// that fills it.
func chunkTypeForGap(gap domain.GapCategory) domain.ChunkType {
	switch gap {
	case domain.GapMissingVocabulary:
		return domain.ChunkTypeVocabulary
	case domain.GapMissingCulturalContext, domain.GapMissingDialect:
		return domain.ChunkTypeCulturalNote
	case domain.GapMissingTranslationPair:
		return domain.ChunkTypeTranslationPair
	}
	return domain.ChunkTypeExampleDialogue
}

func truncateTopic(s string) string {
	runes := []rune(s)
	if len(runes) <= topicMaxLength {
		return s
	}
	return string(runes[:topicMaxLength])
}
