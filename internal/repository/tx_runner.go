package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sauti-labs/lugha/internal/escalation"
	"github.com/sauti-labs/lugha/internal/knowledge"
	"github.com/sauti-labs/lugha/internal/pipeline"
)

// PipelineTxRunner provides transactional repositories for the chat pipeline
// using a pgx pool.
type PipelineTxRunner struct {
	pool *pgxpool.Pool
}

func NewPipelineTxRunner(pool *pgxpool.Pool) *PipelineTxRunner {
	return &PipelineTxRunner{pool: pool}
}

func (r *PipelineTxRunner) WithTx(ctx context.Context, fn func(repos pipeline.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	repos := &pipelineTxRepos{tx: tx}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type pipelineTxRepos struct {
	tx pgx.Tx
}

func (r *pipelineTxRepos) Messages() pipeline.MessageRepositoryInterface {
	return NewConversationRepositoryWithTx(r.tx)
}

func (r *pipelineTxRepos) Runs() pipeline.RunRepositoryInterface {
	return NewPipelineRunRepositoryWithTx(r.tx)
}

func (r *pipelineTxRepos) Escalations() pipeline.EscalationRepositoryInterface {
	return NewEscalationRepositoryWithTx(r.tx)
}

// EscalationTxRunner provides transactional repositories for escalation
// resolution using a pgx pool.
type EscalationTxRunner struct {
	pool *pgxpool.Pool
}

func NewEscalationTxRunner(pool *pgxpool.Pool) *EscalationTxRunner {
	return &EscalationTxRunner{pool: pool}
}

func (r *EscalationTxRunner) WithTx(ctx context.Context, fn func(repos escalation.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	repos := &escalationTxRepos{tx: tx}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type escalationTxRepos struct {
	tx pgx.Tx
}

func (r *escalationTxRepos) Items() escalation.ItemRepositoryInterface {
	return NewEscalationRepositoryWithTx(r.tx)
}

func (r *escalationTxRepos) Knowledge() escalation.KnowledgeRepositoryInterface {
	return NewKnowledgeRepositoryWithTx(r.tx)
}

func (r *escalationTxRepos) EmbeddingJobs() escalation.EmbeddingJobRepositoryInterface {
	return NewEmbeddingJobRepositoryWithTx(r.tx)
}

// KnowledgeTxRunner provides transactional repositories for curator writes
// using a pgx pool.
type KnowledgeTxRunner struct {
	pool *pgxpool.Pool
}

func NewKnowledgeTxRunner(pool *pgxpool.Pool) *KnowledgeTxRunner {
	return &KnowledgeTxRunner{pool: pool}
}

func (r *KnowledgeTxRunner) WithTx(ctx context.Context, fn func(repos knowledge.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	repos := &knowledgeTxRepos{tx: tx}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type knowledgeTxRepos struct {
	tx pgx.Tx
}

func (r *knowledgeTxRepos) Knowledge() knowledge.RepositoryInterface {
	return NewKnowledgeRepositoryWithTx(r.tx)
}

func (r *knowledgeTxRepos) EmbeddingJobs() knowledge.EmbeddingJobRepositoryInterface {
	return NewEmbeddingJobRepositoryWithTx(r.tx)
}
