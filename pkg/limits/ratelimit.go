// Package limits provides per-key rate limiting for client events.
package limits

import (
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

// ErrRateLimitExceeded is returned to clients whose events are dropped.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// TokenBucket keeps one token bucket per key, typically a socket id.
// Buckets are created full on first use.
type TokenBucket struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewTokenBucket creates a limiter allowing eventRate events per second
// with bursts of up to burst events.
func NewTokenBucket(eventRate float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{
		limit:    rate.Limit(eventRate),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether one event for key may proceed.
func (tb *TokenBucket) Allow(key string) bool {
	return tb.limiter(key).Allow()
}

// Forget drops the bucket for key. Connections call it on disconnect so
// the map does not grow with closed sockets.
func (tb *TokenBucket) Forget(key string) {
	tb.mu.Lock()
	delete(tb.limiters, key)
	tb.mu.Unlock()
}

func (tb *TokenBucket) limiter(key string) *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	l, ok := tb.limiters[key]
	if !ok {
		l = rate.NewLimiter(tb.limit, tb.burst)
		tb.limiters[key] = l
	}
	return l
}
