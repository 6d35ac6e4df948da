package scraper

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RateLimiter spaces out page loads by blocking for a uniformly-random
// duration within [min, max]. The randomization avoids the detectable
// fixed-interval request pattern a plain ticker would produce. It keeps no
// state across calls beyond the bounds themselves.
type RateLimiter struct {
	min time.Duration
	max time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRateLimiter builds a limiter from delay bounds in seconds. A max below
// min is clamped to min.
func NewRateLimiter(minSeconds, maxSeconds float64) *RateLimiter {
	if maxSeconds < minSeconds {
		maxSeconds = minSeconds
	}
	return &RateLimiter{
		min: time.Duration(minSeconds * float64(time.Second)),
		max: time.Duration(maxSeconds * float64(time.Second)),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait blocks for a random delay within the configured bounds, or returns
// early with ctx.Err() when the session is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	d := r.Delay()
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Delay picks the next random duration in [min, max].
func (r *RateLimiter) Delay() time.Duration {
	if r.max <= r.min {
		return r.min
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.min + time.Duration(r.rng.Int63n(int64(r.max-r.min)+1))
}
