package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/sauti-labs/lugha/internal/domain"
	"github.com/sauti-labs/lugha/internal/knowledge"
	"github.com/sauti-labs/lugha/internal/pagination"
)

// verificationBoost is the deterministic per-rank score bonus applied on top
// of vector similarity, so higher-trust entries win similarity ties.
const verificationBoost = 0.02

type KnowledgeRepository struct {
	db dbtx
}

func NewKnowledgeRepository(pool *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{db: pool}
}

func NewKnowledgeRepositoryWithTx(tx pgx.Tx) *KnowledgeRepository {
	return &KnowledgeRepository{db: tx}
}

func (r *KnowledgeRepository) Create(ctx context.Context, k *domain.KnowledgeEntry) error {
	var embedding any
	if len(k.Embedding) > 0 {
		embedding = pgvector.NewVector(k.Embedding)
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_entries (id, language, chunk_type, topic, content, source, verification, embedding, supersedes_id, superseded, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		k.ID, k.Language, k.ChunkType, k.Topic, k.Content, k.Source, k.Verification,
		embedding, nullableString(k.SupersedesID), k.Superseded, k.CreatedAt, k.UpdatedAt,
	)
	return err
}

func (r *KnowledgeRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, language, chunk_type, topic, content, source, verification, supersedes_id, superseded, created_at, updated_at
		 FROM knowledge_entries WHERE id = $1`,
		id,
	)
	entry, err := scanKnowledgeEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (r *KnowledgeRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.KnowledgeEntry, error) {
	if len(ids) == 0 {
		return []*domain.KnowledgeEntry{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, language, chunk_type, topic, content, source, verification, supersedes_id, superseded, created_at, updated_at
		 FROM knowledge_entries WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKnowledgeRows(rows)
}

// SearchSemantic ranks current entries of the requested language by vector
// similarity plus the verification boost. The boost is applied in SQL so
// ordering is identical on every read.
func (r *KnowledgeRepository) SearchSemantic(ctx context.Context, embedding []float32, language string, limit int) ([]*domain.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = 5
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.db.Query(ctx,
		`SELECT id, language, chunk_type, topic, content, source, verification, supersedes_id, superseded, created_at, updated_at
		 FROM knowledge_entries
		 WHERE language = $2 AND superseded = FALSE AND embedding IS NOT NULL
		 ORDER BY 1.0 / (1.0 + (embedding <=> $1)) + $3 * (CASE verification
		     WHEN 'seed' THEN 0
		     WHEN 'single_annotator' THEN 1
		     WHEN 'multi_annotator_verified' THEN 2
		     WHEN 'expert_reviewed' THEN 3
		     ELSE 0 END) DESC, id
		 LIMIT $4`,
		vec, language, verificationBoost, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKnowledgeRows(rows)
}

// SearchKeyword is the degraded path used when embeddings are unavailable:
// any-token match on content or topic, most recent first.
func (r *KnowledgeRepository) SearchKeyword(ctx context.Context, tokens []string, language string, limit int) ([]*domain.KnowledgeEntry, error) {
	if len(tokens) == 0 {
		return []*domain.KnowledgeEntry{}, nil
	}
	if limit <= 0 {
		limit = 5
	}

	patterns := make([]string, 0, len(tokens))
	for _, token := range tokens {
		patterns = append(patterns, "%"+escapeLike(token)+"%")
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, language, chunk_type, topic, content, source, verification, supersedes_id, superseded, created_at, updated_at
		 FROM knowledge_entries
		 WHERE language = $2 AND superseded = FALSE
		   AND (content ILIKE ANY($1) OR topic ILIKE ANY($1))
		 ORDER BY updated_at DESC, id
		 LIMIT $3`,
		patterns, language, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKnowledgeRows(rows)
}

func (r *KnowledgeRepository) ListByLanguage(ctx context.Context, language string, cursor *pagination.Cursor, limit int) (*knowledge.PageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, language, chunk_type, topic, content, source, verification, supersedes_id, superseded, created_at, updated_at
			 FROM knowledge_entries
			 WHERE language = $1 AND superseded = FALSE AND (updated_at, id) < ($2, $3)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $4`,
			language, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, language, chunk_type, topic, content, source, verification, supersedes_id, superseded, created_at, updated_at
			 FROM knowledge_entries
			 WHERE language = $1 AND superseded = FALSE
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $2`,
			language, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanKnowledgeRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.UpdatedAt)
	}

	return &knowledge.PageResult{Items: items, NextCursor: nextCursor, HasMore: hasMore}, nil
}

func (r *KnowledgeRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_entries SET embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeEntryNotFound
	}
	return nil
}

// MarkSuperseded retires a version after its replacement is written. The row
// itself is never deleted or rewritten.
func (r *KnowledgeRepository) MarkSuperseded(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_entries SET superseded = TRUE, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeEntryNotFound
	}
	return nil
}

// UpgradeVerification raises the trust tier. The rank comparison is part of
// the UPDATE predicate, so a concurrent downgrade attempt affects zero rows
// instead of regressing the status.
func (r *KnowledgeRepository) UpgradeVerification(ctx context.Context, id string, status domain.VerificationStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_entries
		 SET verification = $1, updated_at = $2
		 WHERE id = $3
		   AND (CASE verification
		       WHEN 'seed' THEN 0
		       WHEN 'single_annotator' THEN 1
		       WHEN 'multi_annotator_verified' THEN 2
		       WHEN 'expert_reviewed' THEN 3
		       ELSE 0 END) <= $4`,
		status, time.Now().UTC(), id, domain.VerificationRank(status),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrVerificationDowngrade
	}
	return nil
}

func (r *KnowledgeRepository) AppendHistory(ctx context.Context, h *domain.KnowledgeHistory) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_history (id, entry_id, prior_content, edited_by, reason, at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		h.ID, h.EntryID, h.PriorContent, h.EditedBy, h.Reason, h.At,
	)
	return err
}

func (r *KnowledgeRepository) GetHistory(ctx context.Context, entryID string) ([]*domain.KnowledgeHistory, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, entry_id, prior_content, edited_by, reason, at
		 FROM knowledge_history WHERE entry_id = $1 ORDER BY at ASC`,
		entryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.KnowledgeHistory
	for rows.Next() {
		var h domain.KnowledgeHistory
		if err := rows.Scan(&h.ID, &h.EntryID, &h.PriorContent, &h.EditedBy, &h.Reason, &h.At); err != nil {
			return nil, err
		}
		records = append(records, &h)
	}
	return records, rows.Err()
}

func scanKnowledgeEntry(row pgx.Row) (*domain.KnowledgeEntry, error) {
	var k domain.KnowledgeEntry
	var supersedes pgtype.Text
	if err := row.Scan(&k.ID, &k.Language, &k.ChunkType, &k.Topic, &k.Content, &k.Source,
		&k.Verification, &supersedes, &k.Superseded, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	if supersedes.Valid {
		k.SupersedesID = supersedes.String
	}
	return &k, nil
}

func scanKnowledgeRows(rows pgx.Rows) ([]*domain.KnowledgeEntry, error) {
	entries := make([]*domain.KnowledgeEntry, 0)
	for rows.Next() {
		entry, err := scanKnowledgeEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
