package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sauti-labs/lugha/internal/domain"
)

type ConversationRepository struct {
	db dbtx
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: pool}
}

func NewConversationRepositoryWithTx(tx pgx.Tx) *ConversationRepository {
	return &ConversationRepository{db: tx}
}

func (r *ConversationRepository) CreateMessage(ctx context.Context, m *domain.ConversationMessage) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO conversation_messages (id, conversation_id, role, content, source, confidence_score, pipeline_run_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.ConversationID, m.Role, m.Content, nullableString(string(m.Source)),
		m.ConfidenceScore, nullableString(m.PipelineRunID), m.CreatedAt,
	)
	return err
}

// AttachRun links a message to the pipeline run that produced it. The only
// mutation a message ever sees.
func (r *ConversationRepository) AttachRun(ctx context.Context, messageID, runID string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE conversation_messages SET pipeline_run_id = $1 WHERE id = $2`,
		runID, messageID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrConversationMsgNotFound
	}
	return nil
}

func (r *ConversationRepository) GetMessage(ctx context.Context, id string) (*domain.ConversationMessage, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, conversation_id, role, content, source, confidence_score, pipeline_run_id, created_at
		 FROM conversation_messages WHERE id = $1`,
		id,
	)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationMsgNotFound
		}
		return nil, err
	}
	return msg, nil
}

func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string) ([]*domain.ConversationMessage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, conversation_id, role, content, source, confidence_score, pipeline_run_id, created_at
		 FROM conversation_messages
		 WHERE conversation_id = $1
		 ORDER BY created_at ASC, id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessageRows(rows)
}

// ListRecent returns the newest limit messages in chronological order, used
// as conversation history for the translator prompt.
func (r *ConversationRepository) ListRecent(ctx context.Context, conversationID string, limit int) ([]*domain.ConversationMessage, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, conversation_id, role, content, source, confidence_score, pipeline_run_id, created_at
		 FROM (
		     SELECT id, conversation_id, role, content, source, confidence_score, pipeline_run_id, created_at
		     FROM conversation_messages
		     WHERE conversation_id = $1
		     ORDER BY created_at DESC, id DESC
		     LIMIT $2
		 ) recent
		 ORDER BY created_at ASC, id ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessageRows(rows)
}

func scanMessage(row pgx.Row) (*domain.ConversationMessage, error) {
	var m domain.ConversationMessage
	var source, runID pgtype.Text
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &source,
		&m.ConfidenceScore, &runID, &m.CreatedAt); err != nil {
		return nil, err
	}
	if source.Valid {
		m.Source = domain.MessageSource(source.String)
	}
	if runID.Valid {
		m.PipelineRunID = runID.String
	}
	return &m, nil
}

func scanMessageRows(rows pgx.Rows) ([]*domain.ConversationMessage, error) {
	messages := make([]*domain.ConversationMessage, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
