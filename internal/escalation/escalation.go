// Package escalation manages the human review queue: listing and claiming
// items, resolving them directly or through gold-set quorum voting, and
// feeding approved or corrected answers back into the knowledge store.
package escalation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sauti-labs/lugha/internal/domain"
)

// ItemRepositoryInterface defines the repository interface for escalation persistence
type ItemRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.EscalationItem, error)
	ListOpen(ctx context.Context, status domain.EscalationStatus, limit int) ([]*domain.EscalationItem, error)
	Claim(ctx context.Context, id, reviewerID string, touchedAt time.Time) error
	MarkGoldSet(ctx context.Context, id string) error
	Resolve(ctx context.Context, id, reviewerID string, status domain.EscalationStatus, correctedAnswer string, resolvedAt time.Time) error
	AddVote(ctx context.Context, vote *domain.EscalationVote) error
	ListVotes(ctx context.Context, itemID string) ([]domain.EscalationVote, error)
}

// RunRepositoryInterface defines the repository interface for pipeline run lookups
type RunRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.PipelineRun, error)
}

// KnowledgeRepositoryInterface defines the repository interface for knowledge writes
type KnowledgeRepositoryInterface interface {
	Create(ctx context.Context, k *domain.KnowledgeEntry) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error)
	UpgradeVerification(ctx context.Context, id string, status domain.VerificationStatus) error
}

// EmbeddingJobRepositoryInterface defines the repository interface for embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// TxRepositories exposes the repositories bound to one open transaction.
type TxRepositories interface {
	Items() ItemRepositoryInterface
	Knowledge() KnowledgeRepositoryInterface
	EmbeddingJobs() EmbeddingJobRepositoryInterface
}

// TxRunner runs fn inside a single database transaction. A resolution and
// its knowledge feedback must land together or not at all.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}
