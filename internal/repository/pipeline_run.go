package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sauti-labs/lugha/internal/domain"
)

type PipelineRunRepository struct {
	db dbtx
}

func NewPipelineRunRepository(pool *pgxpool.Pool) *PipelineRunRepository {
	return &PipelineRunRepository{db: pool}
}

func NewPipelineRunRepositoryWithTx(tx pgx.Tx) *PipelineRunRepository {
	return &PipelineRunRepository{db: tx}
}

func (r *PipelineRunRepository) Create(ctx context.Context, run *domain.PipelineRun) error {
	issues := run.Judgment.Issues
	if issues == nil {
		issues = []string{}
	}
	knowledgeIDs := run.KnowledgeIDsUsed
	if knowledgeIDs == nil {
		knowledgeIDs = []string{}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO pipeline_runs
		     (id, message_id, translator_model, translator_output, translator_latency_ms,
		      reviewer_output, reviewer_latency_ms, reviewer_score, reviewer_passed,
		      reviewer_reasoning, issues, gap_category, composite_score, knowledge_ids,
		      retry_count, disposition, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		run.ID, run.MessageID, run.TranslatorModel, run.TranslatorOutput,
		run.TranslatorLatency.Milliseconds(), run.ReviewerOutput,
		run.ReviewerLatency.Milliseconds(), run.Judgment.Score, run.Judgment.Passed,
		run.Judgment.Reasoning, issues, nullableString(string(run.Judgment.GapCategory)),
		run.CompositeScore, knowledgeIDs, run.RetryCount, run.Disposition, run.CreatedAt,
	)
	return err
}

func (r *PipelineRunRepository) GetByID(ctx context.Context, id string) (*domain.PipelineRun, error) {
	var run domain.PipelineRun
	var translatorLatencyMS, reviewerLatencyMS int64
	var gapCategory pgtype.Text

	err := r.db.QueryRow(ctx,
		`SELECT id, message_id, translator_model, translator_output, translator_latency_ms,
		        reviewer_output, reviewer_latency_ms, reviewer_score, reviewer_passed,
		        reviewer_reasoning, issues, gap_category, composite_score, knowledge_ids,
		        retry_count, disposition, created_at
		 FROM pipeline_runs WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.MessageID, &run.TranslatorModel, &run.TranslatorOutput,
		&translatorLatencyMS, &run.ReviewerOutput, &reviewerLatencyMS,
		&run.Judgment.Score, &run.Judgment.Passed, &run.Judgment.Reasoning,
		&run.Judgment.Issues, &gapCategory, &run.CompositeScore, &run.KnowledgeIDsUsed,
		&run.RetryCount, &run.Disposition, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPipelineRunNotFound
		}
		return nil, err
	}

	run.TranslatorLatency = time.Duration(translatorLatencyMS) * time.Millisecond
	run.ReviewerLatency = time.Duration(reviewerLatencyMS) * time.Millisecond
	if gapCategory.Valid {
		run.Judgment.GapCategory = domain.GapCategory(gapCategory.String)
	}
	return &run, nil
}
