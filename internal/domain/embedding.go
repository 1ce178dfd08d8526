package domain

import (
	"fmt"
	"time"
)

// EmbeddingJobStatus represents the status of an embedding job
type EmbeddingJobStatus string

const (
	EmbeddingJobStatusPending    EmbeddingJobStatus = "pending"
	EmbeddingJobStatusProcessing EmbeddingJobStatus = "processing"
	EmbeddingJobStatusCompleted  EmbeddingJobStatus = "completed"
	EmbeddingJobStatusFailed     EmbeddingJobStatus = "failed"
)

// EmbeddingJob queues asynchronous embedding generation for a knowledge
// entry, so writes from curators and the feedback loop never block on the
// embedding provider.
type EmbeddingJob struct {
	ID          string
	EntryID     string
	Status      EmbeddingJobStatus
	Retries     int
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// ValidateEmbeddingJob validates an EmbeddingJob instance
func ValidateEmbeddingJob(job *EmbeddingJob) error {
	if job == nil {
		return fmt.Errorf("embedding job cannot be nil")
	}

	if job.ID == "" {
		return fmt.Errorf("embedding job ID is required")
	}

	if job.EntryID == "" {
		return fmt.Errorf("embedding job EntryID is required")
	}

	switch job.Status {
	case EmbeddingJobStatusPending, EmbeddingJobStatusProcessing, EmbeddingJobStatusCompleted, EmbeddingJobStatusFailed:
	default:
		return fmt.Errorf("embedding job Status is invalid: %s", job.Status)
	}

	return nil
}
