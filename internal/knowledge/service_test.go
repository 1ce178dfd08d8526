package knowledge

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sauti-labs/lugha/internal/domain"
	"github.com/sauti-labs/lugha/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock implementation of RepositoryInterface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, k *domain.KnowledgeEntry) error {
	args := m.Called(ctx, k)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockRepository) ListByLanguage(ctx context.Context, language string, cursor *pagination.Cursor, limit int) (*PageResult, error) {
	args := m.Called(ctx, language, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PageResult), args.Error(1)
}

func (m *MockRepository) MarkSuperseded(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) UpgradeVerification(ctx context.Context, id string, status domain.VerificationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockRepository) AppendHistory(ctx context.Context, h *domain.KnowledgeHistory) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

func (m *MockRepository) GetHistory(ctx context.Context, entryID string) ([]*domain.KnowledgeHistory, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeHistory), args.Error(1)
}

// MockEmbeddingJobRepository is a mock implementation of EmbeddingJobRepositoryInterface
type MockEmbeddingJobRepository struct {
	mock.Mock
}

func (m *MockEmbeddingJobRepository) Create(ctx context.Context, job *domain.EmbeddingJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type stubTxRepositories struct {
	knowledge *MockRepository
	jobs      *MockEmbeddingJobRepository
}

func (s stubTxRepositories) Knowledge() RepositoryInterface { return s.knowledge }

func (s stubTxRepositories) EmbeddingJobs() EmbeddingJobRepositoryInterface { return s.jobs }

type stubTxRunner struct {
	repos stubTxRepositories
	err   error
}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(s.repos)
}

type seqUUIDGenerator struct {
	n int
}

func (g *seqUUIDGenerator) NewString() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type serviceFixture struct {
	repo    *MockRepository
	txRepo  *MockRepository
	jobs    *MockEmbeddingJobRepository
	service *Service
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		repo:   &MockRepository{},
		txRepo: &MockRepository{},
		jobs:   &MockEmbeddingJobRepository{},
	}
	runner := &stubTxRunner{repos: stubTxRepositories{knowledge: f.txRepo, jobs: f.jobs}}
	f.service = NewServiceWithUUIDGen(f.repo, runner, &seqUUIDGenerator{})
	return f
}

func currentEntry() *domain.KnowledgeEntry {
	now := time.Now()
	return &domain.KnowledgeEntry{
		ID:           "k1",
		Language:     "swahili",
		ChunkType:    domain.ChunkTypeVocabulary,
		Topic:        "greetings",
		Content:      "Shikamoo greets elders.",
		Source:       "seed_corpus",
		Verification: domain.VerificationSingle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCreateStoresEntryAndQueuesEmbedding(t *testing.T) {
	f := newServiceFixture()

	f.txRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.jobs.On("Create", mock.Anything, mock.Anything).Return(nil)

	entry, err := f.service.Create(context.Background(), CreateInput{
		Language:  "swahili",
		ChunkType: domain.ChunkTypeCulturalNote,
		Topic:     "respect",
		Content:   "Elders are greeted first.",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.VerificationSeed, entry.Verification)
	assert.Equal(t, "curator", entry.Source)
	assert.NotEmpty(t, entry.ID)

	f.jobs.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(j *domain.EmbeddingJob) bool {
		return j.EntryID == entry.ID && j.Status == domain.EmbeddingJobStatusPending
	}))
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.Create(context.Background(), CreateInput{
		Language:  "swahili",
		ChunkType: "sonnet",
		Content:   "x",
	})

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	f.txRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateVersionsInsteadOfMutating(t *testing.T) {
	f := newServiceFixture()
	prior := currentEntry()

	f.repo.On("GetByID", mock.Anything, "k1").Return(prior, nil)
	f.txRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.txRepo.On("MarkSuperseded", mock.Anything, "k1").Return(nil)
	f.txRepo.On("AppendHistory", mock.Anything, mock.Anything).Return(nil)
	f.jobs.On("Create", mock.Anything, mock.Anything).Return(nil)

	replacement, err := f.service.Update(context.Background(), UpdateInput{
		EntryID:  "k1",
		Content:  "Shikamoo greets elders; respond with marahaba.",
		EditedBy: "curator-1",
		Reason:   "add the response",
	})

	require.NoError(t, err)
	assert.NotEqual(t, "k1", replacement.ID)
	assert.Equal(t, "k1", replacement.SupersedesID)
	assert.Equal(t, domain.VerificationSingle, replacement.Verification)
	assert.Equal(t, prior.Topic, replacement.Topic, "topic carries over when not edited")

	f.txRepo.AssertCalled(t, "AppendHistory", mock.Anything, mock.MatchedBy(func(h *domain.KnowledgeHistory) bool {
		return h.EntryID == "k1" &&
			h.PriorContent == "Shikamoo greets elders." &&
			h.EditedBy == "curator-1"
	}))
}

func TestUpdateRejectsSupersededEntry(t *testing.T) {
	f := newServiceFixture()
	prior := currentEntry()
	prior.Superseded = true

	f.repo.On("GetByID", mock.Anything, "k1").Return(prior, nil)

	_, err := f.service.Update(context.Background(), UpdateInput{
		EntryID: "k1", Content: "x", EditedBy: "curator-1",
	})

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeConflict, domainErr.Code)
	f.txRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConfirmUpgradesVerification(t *testing.T) {
	f := newServiceFixture()
	upgraded := currentEntry()
	upgraded.Verification = domain.VerificationMulti

	f.repo.On("UpgradeVerification", mock.Anything, "k1", domain.VerificationMulti).Return(nil)
	f.repo.On("GetByID", mock.Anything, "k1").Return(upgraded, nil)

	got, err := f.service.Confirm(context.Background(), "k1", domain.VerificationMulti)

	require.NoError(t, err)
	assert.Equal(t, domain.VerificationMulti, got.Verification)
}

func TestConfirmRejectsDowngrade(t *testing.T) {
	f := newServiceFixture()

	f.repo.On("UpgradeVerification", mock.Anything, "k1", domain.VerificationSeed).
		Return(domain.ErrVerificationDowngrade)

	_, err := f.service.Confirm(context.Background(), "k1", domain.VerificationSeed)

	assert.ErrorIs(t, err, domain.ErrVerificationDowngrade)
}

func TestConfirmRejectsUnknownStatus(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.Confirm(context.Background(), "k1", "blessed")

	assert.ErrorIs(t, err, domain.ErrInvalidVerificationStatus)
}

func TestListDecodesCursor(t *testing.T) {
	f := newServiceFixture()

	cursor := pagination.EncodeCursor("k5", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	page := &PageResult{Items: []*domain.KnowledgeEntry{currentEntry()}}

	f.repo.On("ListByLanguage", mock.Anything, "swahili", mock.MatchedBy(func(c *pagination.Cursor) bool {
		return c != nil && c.LastID == "k5"
	}), 20).Return(page, nil)

	got, err := f.service.List(context.Background(), ListInput{Language: "swahili", Cursor: cursor, Limit: 20})

	require.NoError(t, err)
	assert.Equal(t, page, got)
}

func TestListRejectsBadCursor(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.List(context.Background(), ListInput{Language: "swahili", Cursor: "not base64!"})

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestHistoryRequiresExistingEntry(t *testing.T) {
	f := newServiceFixture()

	f.repo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrKnowledgeEntryNotFound)

	_, err := f.service.History(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrKnowledgeEntryNotFound)
}
