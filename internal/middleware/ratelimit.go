package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"shortly/internal/errors"
)

const (
	pruneEvery = 5 * time.Minute
	idleAfter  = 10 * time.Minute
)

// RateLimiter holds one token bucket per key, usually an owner ID
type RateLimiter struct {
	visitors  map[string]*visitor
	mu        sync.Mutex
	rate      rate.Limit // tokens per second
	burst     int        // maximum burst size
	now       func() time.Time
	lastPrune time.Time
}

// visitor holds a rate limiter for a specific key
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
// rps: actions per second per key
// burst: maximum burst size (allows short bursts above the rate)
func NewRateLimiter(rps rate.Limit, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		visitors:  make(map[string]*visitor),
		rate:      rps,
		burst:     burst,
		now:       time.Now,
		lastPrune: time.Now(),
	}
}

// getVisitor returns the bucket for key, creating one if needed.
// Caller holds rl.mu.
func (rl *RateLimiter) getVisitor(key string, now time.Time) *rate.Limiter {
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// pruneVisitors drops keys idle for longer than idleAfter. It runs inline at
// most once per pruneEvery instead of from a background goroutine.
// Caller holds rl.mu.
func (rl *RateLimiter) pruneVisitors(now time.Time) {
	if now.Sub(rl.lastPrune) < pruneEvery {
		return
	}
	rl.lastPrune = now
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > idleAfter {
			delete(rl.visitors, key)
		}
	}
}

// Allow reports whether key may act now and consumes a token if so
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.pruneVisitors(now)
	return rl.getVisitor(key, now).AllowN(now, 1)
}

// Check is Allow returning ErrRateLimited with a hint when the key is over budget
func (rl *RateLimiter) Check(key string) error {
	if rl.Allow(key) {
		return nil
	}
	return errors.WithHint(
		errors.Wrapf(errors.ErrRateLimited, "too many requests for %s", key),
		"wait a moment and try again")
}

// Tracked returns the number of keys currently holding a bucket
func (rl *RateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}
