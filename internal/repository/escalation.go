package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sauti-labs/lugha/internal/domain"
)

type EscalationRepository struct {
	db dbtx
}

func NewEscalationRepository(pool *pgxpool.Pool) *EscalationRepository {
	return &EscalationRepository{db: pool}
}

func NewEscalationRepositoryWithTx(tx pgx.Tx) *EscalationRepository {
	return &EscalationRepository{db: tx}
}

func (r *EscalationRepository) Create(ctx context.Context, item *domain.EscalationItem) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO escalation_items
		     (id, pipeline_run_id, learner_request, model_answer, language, confidence_score,
		      reviewer_reasoning, gap_category, status, corrected_answer, reviewer_id, gold_set,
		      created_at, first_touched_at, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		item.ID, item.PipelineRunID, item.LearnerRequest, item.ModelAnswer, item.Language,
		item.ConfidenceScore, item.ReviewerReasoning, nullableString(string(item.GapCategory)),
		item.Status, nullableString(item.CorrectedAnswer), nullableString(item.ReviewerID),
		item.GoldSet, item.CreatedAt, item.FirstTouchedAt, item.ResolvedAt,
	)
	return err
}

func (r *EscalationRepository) GetByID(ctx context.Context, id string) (*domain.EscalationItem, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, pipeline_run_id, learner_request, model_answer, language, confidence_score,
		        reviewer_reasoning, gap_category, status, corrected_answer, reviewer_id, gold_set,
		        created_at, first_touched_at, resolved_at
		 FROM escalation_items WHERE id = $1`,
		id,
	)
	item, err := scanEscalationItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEscalationItemNotFound
		}
		return nil, err
	}

	votes, err := r.ListVotes(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Votes = votes
	return item, nil
}

// ListOpen returns non-terminal items in presentation priority order:
// lowest confidence first, then gap severity, then how many open items share
// the gap (frequent gaps first). Priority is computed here at read time and
// never stored.
func (r *EscalationRepository) ListOpen(ctx context.Context, status domain.EscalationStatus, limit int) ([]*domain.EscalationItem, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT e.id, e.pipeline_run_id, e.learner_request, e.model_answer, e.language, e.confidence_score,
		        e.reviewer_reasoning, e.gap_category, e.status, e.corrected_answer, e.reviewer_id, e.gold_set,
		        e.created_at, e.first_touched_at, e.resolved_at
		 FROM escalation_items e
		 LEFT JOIN (
		     SELECT gap_category, COUNT(*) AS open_count
		     FROM escalation_items
		     WHERE status IN ('pending', 'in_review')
		     GROUP BY gap_category
		 ) freq ON freq.gap_category = e.gap_category
		 WHERE e.status = $1
		 ORDER BY e.confidence_score ASC,
		          (CASE e.gap_category
		              WHEN 'missing_cultural_context' THEN 0
		              WHEN 'missing_dialect_knowledge' THEN 1
		              WHEN 'missing_translation_pair' THEN 2
		              WHEN 'missing_vocabulary' THEN 3
		              ELSE 4 END) ASC,
		          COALESCE(freq.open_count, 0) DESC,
		          e.created_at ASC
		 LIMIT $2`,
		status, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*domain.EscalationItem, 0)
	for rows.Next() {
		item, err := scanEscalationItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Claim moves a pending item to in_review and stamps first touch. The status
// predicate makes the check-and-update atomic; a claim on anything but a
// pending item reports a conflict.
func (r *EscalationRepository) Claim(ctx context.Context, id, reviewerID string, touchedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE escalation_items
		 SET status = $1, reviewer_id = $2, first_touched_at = COALESCE(first_touched_at, $3)
		 WHERE id = $4 AND status = $5`,
		domain.EscalationInReview, reviewerID, touchedAt, id, domain.EscalationPending,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return r.conflictOrNotFound(ctx, id)
	}
	return nil
}

// MarkGoldSet flags an open item for quorum voting. Terminal items cannot
// change mode; the predicate leaves them untouched.
func (r *EscalationRepository) MarkGoldSet(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE escalation_items
		 SET gold_set = TRUE
		 WHERE id = $1 AND status IN ($2, $3)`,
		id, domain.EscalationPending, domain.EscalationInReview,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return r.conflictOrNotFound(ctx, id)
	}
	return nil
}

// Resolve applies a terminal decision only while the item is still
// non-terminal. First decision wins; later attempts get a conflict and the
// stored row is untouched.
func (r *EscalationRepository) Resolve(ctx context.Context, id, reviewerID string, status domain.EscalationStatus, correctedAnswer string, resolvedAt time.Time) error {
	if !status.IsTerminal() {
		return domain.NewDomainError(domain.ErrCodeInvalidOperation, "resolution status must be terminal")
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE escalation_items
		 SET status = $1, reviewer_id = $2, corrected_answer = $3,
		     first_touched_at = COALESCE(first_touched_at, $4), resolved_at = $4
		 WHERE id = $5 AND status IN ($6, $7)`,
		status, reviewerID, nullableString(correctedAnswer), resolvedAt, id,
		domain.EscalationPending, domain.EscalationInReview,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return r.conflictOrNotFound(ctx, id)
	}
	return nil
}

func (r *EscalationRepository) AddVote(ctx context.Context, vote *domain.EscalationVote) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO escalation_votes (id, item_id, reviewer_id, action, correction, tie_break, cast_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		vote.ID, vote.ItemID, vote.ReviewerID, vote.Action, vote.Correction, vote.TieBreak, vote.CastAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateVote
		}
		return err
	}
	return nil
}

func (r *EscalationRepository) ListVotes(ctx context.Context, itemID string) ([]domain.EscalationVote, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, item_id, reviewer_id, action, correction, tie_break, cast_at
		 FROM escalation_votes WHERE item_id = $1 ORDER BY cast_at ASC`,
		itemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := make([]domain.EscalationVote, 0)
	for rows.Next() {
		var v domain.EscalationVote
		if err := rows.Scan(&v.ID, &v.ItemID, &v.ReviewerID, &v.Action, &v.Correction, &v.TieBreak, &v.CastAt); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func (r *EscalationRepository) conflictOrNotFound(ctx context.Context, id string) error {
	var status domain.EscalationStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM escalation_items WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrEscalationItemNotFound
		}
		return err
	}
	return domain.ErrEscalationConflict
}

func scanEscalationItem(row pgx.Row) (*domain.EscalationItem, error) {
	var item domain.EscalationItem
	var gapCategory, correctedAnswer, reviewerID pgtype.Text
	if err := row.Scan(&item.ID, &item.PipelineRunID, &item.LearnerRequest, &item.ModelAnswer,
		&item.Language, &item.ConfidenceScore, &item.ReviewerReasoning, &gapCategory,
		&item.Status, &correctedAnswer, &reviewerID, &item.GoldSet,
		&item.CreatedAt, &item.FirstTouchedAt, &item.ResolvedAt); err != nil {
		return nil, err
	}
	if gapCategory.Valid {
		item.GapCategory = domain.GapCategory(gapCategory.String)
	}
	if correctedAnswer.Valid {
		item.CorrectedAnswer = correctedAnswer.String
	}
	if reviewerID.Valid {
		item.ReviewerID = reviewerID.String
	}
	return &item, nil
}
