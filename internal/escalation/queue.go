package escalation

import (
	"context"
	"time"

	"github.com/sauti-labs/lugha/internal/domain"
)

const defaultQueueLimit = 50

// Queue serves reviewers the open escalation backlog.
type Queue struct {
	items ItemRepositoryInterface
}

// NewQueue creates a new Queue instance
func NewQueue(items ItemRepositoryInterface) *Queue {
	return &Queue{items: items}
}

// List returns open items in priority order. Only non-terminal statuses can
// be listed; resolved items are audit history, not queue content.
func (q *Queue) List(ctx context.Context, status domain.EscalationStatus, limit int) ([]*domain.EscalationItem, error) {
	if status == "" {
		status = domain.EscalationPending
	}
	if status.IsTerminal() {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "queue status must be pending or in_review")
	}
	if status != domain.EscalationPending && status != domain.EscalationInReview {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "unknown escalation status")
	}
	if limit <= 0 {
		limit = defaultQueueLimit
	}
	return q.items.ListOpen(ctx, status, limit)
}

// Claim moves a pending item to in_review for the given reviewer and returns
// the refreshed item. Claiming an already-claimed or resolved item is a
// conflict, never a silent reassignment.
func (q *Queue) Claim(ctx context.Context, itemID, reviewerID string) (*domain.EscalationItem, error) {
	if itemID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "item ID is required")
	}
	if reviewerID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "reviewer ID is required")
	}

	if err := q.items.Claim(ctx, itemID, reviewerID, time.Now()); err != nil {
		return nil, err
	}
	return q.items.GetByID(ctx, itemID)
}

// FlagGoldSet designates an open item for quorum voting. Once flagged, the
// item resolves through votes instead of a single reviewer decision.
// Resolved items cannot be flagged; their outcome already stands.
func (q *Queue) FlagGoldSet(ctx context.Context, itemID, reviewerID string) (*domain.EscalationItem, error) {
	if itemID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "item ID is required")
	}
	if reviewerID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "reviewer ID is required")
	}

	if err := q.items.MarkGoldSet(ctx, itemID); err != nil {
		return nil, err
	}
	return q.items.GetByID(ctx, itemID)
}
