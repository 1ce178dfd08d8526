package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/sauti-labs/lugha/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingJobRepository is a mock implementation of EmbeddingJobRepository
type MockEmbeddingJobRepository struct {
	mock.Mock
}

func (m *MockEmbeddingJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.EmbeddingJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmbeddingJob), args.Error(1)
}

func (m *MockEmbeddingJobRepository) UpdateStatus(ctx context.Context, id string, status domain.EmbeddingJobStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockEmbeddingJobRepository) IncrementRetries(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockKnowledgeRepository is a mock implementation of KnowledgeRepository
type MockKnowledgeRepository struct {
	mock.Mock
}

func (m *MockKnowledgeRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func pendingJob(id, entryID string, retries int) *domain.EmbeddingJob {
	return &domain.EmbeddingJob{
		ID:      id,
		EntryID: entryID,
		Status:  domain.EmbeddingJobStatusProcessing,
		Retries: retries,
	}
}

func TestProcessJobsCompletesJob(t *testing.T) {
	jobs := &MockEmbeddingJobRepository{}
	knowledge := &MockKnowledgeRepository{}
	embedding := &MockEmbeddingClient{}
	worker := NewEmbeddingWorker(jobs, knowledge, embedding)

	vec := []float32{0.1, 0.2}

	jobs.On("ClaimPending", mock.Anything, 10).Return([]*domain.EmbeddingJob{pendingJob("j1", "k1", 0)}, nil)
	knowledge.On("GetByID", mock.Anything, "k1").Return(&domain.KnowledgeEntry{
		ID: "k1", Topic: "greetings", Content: "Shikamoo greets elders.",
	}, nil)
	embedding.On("GenerateEmbedding", mock.Anything, "greetings\nShikamoo greets elders.").Return(vec, nil)
	knowledge.On("UpdateEmbedding", mock.Anything, "k1", vec).Return(nil)
	jobs.On("UpdateStatus", mock.Anything, "j1", domain.EmbeddingJobStatusCompleted, "").Return(nil)

	err := worker.ProcessJobs(context.Background())

	require.NoError(t, err)
	jobs.AssertExpectations(t)
}

func TestProcessJobsRequeuesOnFailure(t *testing.T) {
	jobs := &MockEmbeddingJobRepository{}
	knowledge := &MockKnowledgeRepository{}
	embedding := &MockEmbeddingClient{}
	worker := NewEmbeddingWorker(jobs, knowledge, embedding)

	jobs.On("ClaimPending", mock.Anything, 10).Return([]*domain.EmbeddingJob{pendingJob("j1", "k1", 0)}, nil)
	knowledge.On("GetByID", mock.Anything, "k1").Return(&domain.KnowledgeEntry{ID: "k1", Content: "x"}, nil)
	embedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))
	jobs.On("IncrementRetries", mock.Anything, "j1").Return(nil)
	jobs.On("UpdateStatus", mock.Anything, "j1", domain.EmbeddingJobStatusPending, mock.Anything).Return(nil)

	err := worker.ProcessJobs(context.Background())

	require.NoError(t, err)
	jobs.AssertCalled(t, "UpdateStatus", mock.Anything, "j1", domain.EmbeddingJobStatusPending, mock.Anything)
}

func TestProcessJobsFailsAfterMaxRetries(t *testing.T) {
	jobs := &MockEmbeddingJobRepository{}
	knowledge := &MockKnowledgeRepository{}
	embedding := &MockEmbeddingClient{}
	worker := NewEmbeddingWorker(jobs, knowledge, embedding)

	jobs.On("ClaimPending", mock.Anything, 10).Return([]*domain.EmbeddingJob{pendingJob("j1", "k1", MaxRetries-1)}, nil)
	knowledge.On("GetByID", mock.Anything, "k1").Return(&domain.KnowledgeEntry{ID: "k1", Content: "x"}, nil)
	embedding.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))
	jobs.On("IncrementRetries", mock.Anything, "j1").Return(nil)
	jobs.On("UpdateStatus", mock.Anything, "j1", domain.EmbeddingJobStatusFailed, mock.Anything).Return(nil)

	err := worker.ProcessJobs(context.Background())

	require.NoError(t, err)
	jobs.AssertCalled(t, "UpdateStatus", mock.Anything, "j1", domain.EmbeddingJobStatusFailed, mock.Anything)
}

func TestProcessJobsEmptyQueue(t *testing.T) {
	jobs := &MockEmbeddingJobRepository{}
	worker := NewEmbeddingWorker(jobs, &MockKnowledgeRepository{}, &MockEmbeddingClient{})

	jobs.On("ClaimPending", mock.Anything, 10).Return([]*domain.EmbeddingJob{}, nil)

	assert.NoError(t, worker.ProcessJobs(context.Background()))
}

func TestProcessJobsContinuesPastBadJob(t *testing.T) {
	jobs := &MockEmbeddingJobRepository{}
	knowledge := &MockKnowledgeRepository{}
	embedding := &MockEmbeddingClient{}
	worker := NewEmbeddingWorker(jobs, knowledge, embedding)

	vec := []float32{0.3}

	jobs.On("ClaimPending", mock.Anything, 10).Return([]*domain.EmbeddingJob{
		pendingJob("j1", "missing", 0),
		pendingJob("j2", "k2", 0),
	}, nil)
	knowledge.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrKnowledgeEntryNotFound)
	jobs.On("IncrementRetries", mock.Anything, "j1").Return(nil)
	jobs.On("UpdateStatus", mock.Anything, "j1", domain.EmbeddingJobStatusPending, mock.Anything).Return(nil)

	knowledge.On("GetByID", mock.Anything, "k2").Return(&domain.KnowledgeEntry{ID: "k2", Content: "y"}, nil)
	embedding.On("GenerateEmbedding", mock.Anything, "y").Return(vec, nil)
	knowledge.On("UpdateEmbedding", mock.Anything, "k2", vec).Return(nil)
	jobs.On("UpdateStatus", mock.Anything, "j2", domain.EmbeddingJobStatusCompleted, "").Return(nil)

	err := worker.ProcessJobs(context.Background())

	require.NoError(t, err)
	jobs.AssertCalled(t, "UpdateStatus", mock.Anything, "j2", domain.EmbeddingJobStatusCompleted, "")
}
