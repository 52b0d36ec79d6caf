// Package ratelimit implements per-caller request quotas keyed by client IP
// for webhooks and by user id for cancellations.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether one more request under key fits in limit per window
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// maxIdleKeys is the map size above which idle buckets are pruned
const maxIdleKeys = 10000

type bucket struct {
	limiter *rate.Limiter
	limit   int
	window  time.Duration
	last    time.Time
}

// MemoryLimiter keeps one token bucket per key in process memory.
// A bucket holds limit tokens and refills one every window/limit.
// Suitable for a single instance and for tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewMemoryLimiter creates an empty in-process limiter
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow takes a token from key's bucket and reports whether one was available
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit < 1 || window <= 0 {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || b.limit != limit || b.window != window {
		b = &bucket{
			limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
			limit:   limit,
			window:  window,
		}
		l.buckets[key] = b
	}
	b.last = now

	if len(l.buckets) > maxIdleKeys {
		l.prune(now)
	}

	return b.limiter.AllowN(now, 1), nil
}

// prune drops buckets idle for a full window; such a bucket is full again
// and indistinguishable from a fresh one.
func (l *MemoryLimiter) prune(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.last) >= b.window {
			delete(l.buckets, k)
		}
	}
}
