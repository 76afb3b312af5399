package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	t.Run("burst then throttle", func(t *testing.T) {
		l := NewLimiter(5, 5)
		for i := range 5 {
			res := l.Allow("a")
			if !res.Allowed {
				t.Fatalf("request %d should be allowed", i+1)
			}
			if res.Limit != 5 {
				t.Errorf("Limit = %d, want 5", res.Limit)
			}
		}
		res := l.Allow("a")
		if res.Allowed {
			t.Fatal("6th request should be rate limited")
		}
		if res.RetryAfter < time.Second {
			t.Errorf("RetryAfter = %v, want >= 1s", res.RetryAfter)
		}
		if res.Remaining != 0 {
			t.Errorf("Remaining = %d, want 0", res.Remaining)
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		l := NewLimiter(2, 2)
		l.Allow("a")
		l.Allow("a")
		if l.Allow("a").Allowed {
			t.Error("a should be rate limited")
		}
		if !l.Allow("b").Allowed {
			t.Error("b should not be rate limited")
		}
		if l.Len() != 2 {
			t.Errorf("Len() = %d, want 2", l.Len())
		}
	})

	t.Run("minimum burst", func(t *testing.T) {
		l := NewLimiter(1, 0)
		if !l.Allow("a").Allowed {
			t.Error("first request should be allowed")
		}
	})

	t.Run("sweep", func(t *testing.T) {
		l := NewLimiter(60, 10)
		l.Allow("a")
		now := time.Now().Add(2 * idleAfter)
		l.mu.Lock()
		l.sweep(now)
		l.mu.Unlock()
		if l.Len() != 0 {
			t.Errorf("Len() = %d after sweep, want 0", l.Len())
		}
	})
}
