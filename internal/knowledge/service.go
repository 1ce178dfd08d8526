// Package knowledge implements the curator surface of the knowledge store:
// creating entries, immutable versioned edits, verification confirmation, and
// the edit history ledger.
package knowledge

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sauti-labs/lugha/internal/domain"
	"github.com/sauti-labs/lugha/internal/pagination"
	"github.com/sauti-labs/lugha/internal/telemetry"
)

// RepositoryInterface defines the repository interface for knowledge persistence
type RepositoryInterface interface {
	Create(ctx context.Context, k *domain.KnowledgeEntry) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error)
	ListByLanguage(ctx context.Context, language string, cursor *pagination.Cursor, limit int) (*PageResult, error)
	MarkSuperseded(ctx context.Context, id string) error
	UpgradeVerification(ctx context.Context, id string, status domain.VerificationStatus) error
	AppendHistory(ctx context.Context, h *domain.KnowledgeHistory) error
	GetHistory(ctx context.Context, entryID string) ([]*domain.KnowledgeHistory, error)
}

// EmbeddingJobRepositoryInterface defines the repository interface for embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// PageResult is one page of knowledge entries.
type PageResult struct {
	Items      []*domain.KnowledgeEntry
	NextCursor string
	HasMore    bool
}

// TxRepositories exposes the repositories bound to one open transaction.
type TxRepositories interface {
	Knowledge() RepositoryInterface
	EmbeddingJobs() EmbeddingJobRepositoryInterface
}

// TxRunner runs fn inside a single database transaction.
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

// Service handles business logic for curated knowledge entries
type Service struct {
	repo    RepositoryInterface
	tx      TxRunner
	uuidGen UUIDGenerator
}

// NewService creates a new Service instance
func NewService(repo RepositoryInterface, tx TxRunner) *Service {
	return &Service{
		repo:    repo,
		tx:      tx,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// NewServiceWithUUIDGen creates a new Service with custom UUID generator (for testing)
func NewServiceWithUUIDGen(repo RepositoryInterface, tx TxRunner, uuidGen UUIDGenerator) *Service {
	return &Service{
		repo:    repo,
		tx:      tx,
		uuidGen: uuidGen,
	}
}

// CreateInput represents the input for creating a knowledge entry
type CreateInput struct {
	Language  string
	ChunkType domain.ChunkType
	Topic     string
	Content   string
	Source    string
}

// Create stores a new entry at seed trust and queues its embedding.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.KnowledgeEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Create", telemetry.SpanAttributes{
		Language:  input.Language,
		Operation: "create",
	})
	defer span.End()

	now := time.Now()
	source := input.Source
	if source == "" {
		source = "curator"
	}

	entry := &domain.KnowledgeEntry{
		ID:           s.uuidGen.NewString(),
		Language:     input.Language,
		ChunkType:    input.ChunkType,
		Topic:        input.Topic,
		Content:      input.Content,
		Source:       source,
		Verification: domain.VerificationSeed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := domain.ValidateKnowledgeEntry(entry); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid knowledge entry", err)
	}

	err := s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Knowledge().Create(ctx, entry); err != nil {
			return err
		}
		return repos.EmbeddingJobs().Create(ctx, &domain.EmbeddingJob{
			ID:        s.uuidGen.NewString(),
			EntryID:   entry.ID,
			Status:    domain.EmbeddingJobStatusPending,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// UpdateInput represents the input for editing a knowledge entry
type UpdateInput struct {
	EntryID  string
	Topic    string
	Content  string
	EditedBy string
	Reason   string
}

// Update edits an entry by versioning: a replacement entry is written, the
// old one is retired, and the prior content lands in the history ledger. The
// replacement starts over at single_annotator trust because a human wrote it
// but nobody has confirmed it yet.
func (s *Service) Update(ctx context.Context, input UpdateInput) (*domain.KnowledgeEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Update", telemetry.SpanAttributes{
		KnowledgeID: input.EntryID,
		Operation:   "update",
	})
	defer span.End()

	if input.EntryID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "entry ID is required")
	}
	if input.Content == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "content is required")
	}
	if input.EditedBy == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "editor identity is required")
	}

	prior, err := s.repo.GetByID(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}
	if prior.Superseded {
		return nil, domain.NewDomainError(domain.ErrCodeConflict, "entry has already been superseded")
	}

	now := time.Now()
	topic := input.Topic
	if topic == "" {
		topic = prior.Topic
	}

	replacement := &domain.KnowledgeEntry{
		ID:           s.uuidGen.NewString(),
		Language:     prior.Language,
		ChunkType:    prior.ChunkType,
		Topic:        topic,
		Content:      input.Content,
		Source:       prior.Source,
		Verification: domain.VerificationSingle,
		SupersedesID: prior.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Knowledge().Create(ctx, replacement); err != nil {
			return err
		}
		if err := repos.Knowledge().MarkSuperseded(ctx, prior.ID); err != nil {
			return err
		}
		if err := repos.Knowledge().AppendHistory(ctx, &domain.KnowledgeHistory{
			ID:           s.uuidGen.NewString(),
			EntryID:      prior.ID,
			PriorContent: prior.Content,
			EditedBy:     input.EditedBy,
			Reason:       input.Reason,
			At:           now,
		}); err != nil {
			return err
		}
		return repos.EmbeddingJobs().Create(ctx, &domain.EmbeddingJob{
			ID:        s.uuidGen.NewString(),
			EntryID:   replacement.ID,
			Status:    domain.EmbeddingJobStatusPending,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return replacement, nil
}

// Get returns one entry by ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	if id == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "entry ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// ListInput represents the input for listing knowledge entries
type ListInput struct {
	Language string
	Cursor   string
	Limit    int
}

// List returns current (non-superseded) entries for a language, newest first.
func (s *Service) List(ctx context.Context, input ListInput) (*PageResult, error) {
	if input.Language == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "language is required")
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.repo.ListByLanguage(ctx, input.Language, cursor, input.Limit)
}

// Confirm raises an entry's verification status. Downgrades are rejected by
// the repository's monotonic predicate.
func (s *Service) Confirm(ctx context.Context, id string, status domain.VerificationStatus) (*domain.KnowledgeEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Confirm", telemetry.SpanAttributes{
		KnowledgeID: id,
		Operation:   "confirm",
	})
	defer span.End()

	if id == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "entry ID is required")
	}
	if domain.VerificationRank(status) < 0 {
		return nil, domain.ErrInvalidVerificationStatus
	}

	if err := s.repo.UpgradeVerification(ctx, id, status); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// History returns the edit ledger for an entry, oldest first.
func (s *Service) History(ctx context.Context, entryID string) ([]*domain.KnowledgeHistory, error) {
	if entryID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "entry ID is required")
	}
	if _, err := s.repo.GetByID(ctx, entryID); err != nil {
		return nil, err
	}
	return s.repo.GetHistory(ctx, entryID)
}
