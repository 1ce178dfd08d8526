package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const (
	LearnerIDKey  contextKey = "learner_id"
	ReviewerIDKey contextKey = "reviewer_id"
)

// Identity lifts the caller identity headers into context. Identity is
// asserted, not authenticated; handlers decide which identity they require.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if learnerID := r.Header.Get("X-Learner-ID"); learnerID != "" {
			ctx = context.WithValue(ctx, LearnerIDKey, learnerID)
		}
		if reviewerID := r.Header.Get("X-Reviewer-ID"); reviewerID != "" {
			ctx = context.WithValue(ctx, ReviewerIDKey, reviewerID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetLearnerID returns the learner ID from context.
func GetLearnerID(ctx context.Context) string {
	learnerID, _ := ctx.Value(LearnerIDKey).(string)
	return learnerID
}

// GetReviewerID returns the reviewer ID from context.
func GetReviewerID(ctx context.Context) string {
	reviewerID, _ := ctx.Value(ReviewerIDKey).(string)
	return reviewerID
}
