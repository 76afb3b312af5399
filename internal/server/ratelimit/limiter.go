// Package ratelimit limits requests per client with token buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleAfter is how long a client bucket is kept after its last request.
const idleAfter = 10 * time.Minute

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Limit      int           // requests per minute
	Remaining  int           // requests left before throttling
	ResetAt    time.Time     // when the bucket will be full again
	RetryAfter time.Duration // 0 if allowed
}

// Limiter holds one token bucket per client key.
//
// Idle buckets are swept lazily from Allow, so a Limiter owns no goroutine.
type Limiter struct {
	perMin int
	burst  int

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter allows perMin requests per minute per key, with bursts of up to
// burst requests. burst is raised to 1 when lower.
func NewLimiter(perMin, burst int) *Limiter {
	return &Limiter{
		perMin:    perMin,
		burst:     max(burst, 1),
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

// Allow consumes one token for key.
func (l *Limiter) Allow(key string) Result {
	now := time.Now()
	every := rate.Limit(float64(l.perMin) / time.Minute.Seconds())

	l.mu.Lock()
	if now.Sub(l.lastSweep) > idleAfter {
		l.sweep(now)
	}
	b := l.buckets[key]
	if b == nil {
		b = &bucket{limiter: rate.NewLimiter(every, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	res := Result{Limit: l.perMin, Allowed: b.limiter.AllowN(now, 1)}
	tokens := b.limiter.TokensAt(now)
	res.Remaining = max(int(tokens), 0)
	res.ResetAt = now.Add(time.Duration((float64(l.burst) - tokens) / float64(every) * float64(time.Second)))
	if !res.Allowed {
		res.RetryAfter = max(time.Duration(float64(time.Second)/float64(every)), time.Second)
	}
	return res
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweep drops the buckets that were idle long enough to be full again.
func (l *Limiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleAfter && b.limiter.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}
