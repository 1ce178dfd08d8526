package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/sauti-labs/lugha/internal/domain"
)

const (
	// MaxRetries is the maximum number of attempts for a failed job
	MaxRetries = 3

	defaultBatchSize = 10
)

// EmbeddingJobRepository defines the interface for embedding job persistence
type EmbeddingJobRepository interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.EmbeddingJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.EmbeddingJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, id string) error
}

// KnowledgeRepository defines the interface for reading entries and storing
// their embeddings
type KnowledgeRepository interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingWorker drains the embedding job queue: claim a batch, embed each
// entry's text, store the vector.
type EmbeddingWorker struct {
	jobs      EmbeddingJobRepository
	knowledge KnowledgeRepository
	embedding EmbeddingClient
	batchSize int
}

// NewEmbeddingWorker creates a new EmbeddingWorker instance
func NewEmbeddingWorker(jobs EmbeddingJobRepository, knowledge KnowledgeRepository, embedding EmbeddingClient) *EmbeddingWorker {
	return &EmbeddingWorker{
		jobs:      jobs,
		knowledge: knowledge,
		embedding: embedding,
		batchSize: defaultBatchSize,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *EmbeddingWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.jobs.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending embedding jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *EmbeddingWorker) processJob(ctx context.Context, job *domain.EmbeddingJob) error {
	if err := w.embedEntry(ctx, job.EntryID); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.jobs.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed successfully", job.ID)
	return nil
}

func (w *EmbeddingWorker) embedEntry(ctx context.Context, entryID string) error {
	entry, err := w.knowledge.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("failed to load entry: %w", err)
	}

	text := entry.Content
	if entry.Topic != "" {
		text = entry.Topic + "\n" + entry.Content
	}

	vec, err := w.embedding.GenerateEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	return w.knowledge.UpdateEmbedding(ctx, entryID, vec)
}

// handleJobFailure handles a failed job with retry logic
func (w *EmbeddingWorker) handleJobFailure(ctx context.Context, job *domain.EmbeddingJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.jobs.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.jobs.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.jobs.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
