package pipeline

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-learner call budget over a sliding window. Each
// learner gets an independent token bucket sized to the budget, refilled at
// budget/window.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewRateLimiter(budget int, window time.Duration) *RateLimiter {
	if budget <= 0 {
		budget = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(budget) / window.Seconds()),
		burst:    budget,
	}
}

// Allow reports whether the learner may spend one call from their budget.
func (r *RateLimiter) Allow(learnerID string) bool {
	r.mu.Lock()
	limiter, ok := r.limiters[learnerID]
	if !ok {
		limiter = rate.NewLimiter(r.limit, r.burst)
		r.limiters[learnerID] = limiter
	}
	r.mu.Unlock()

	return limiter.Allow()
}
