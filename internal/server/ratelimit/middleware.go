// HTTP middleware applying a read and a write budget per client IP.

package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
)

// Limits selects the limiter for a request. A nil limiter disables limiting
// for that kind of request.
type Limits struct {
	Read  *Limiter
	Write *Limiter
}

// NewLimits builds Limits from per minute budgets. A budget of 0 disables the
// corresponding limiter. The burst is a sixth of the budget, like a ten
// second window.
func NewLimits(readPerMin, writePerMin int) *Limits {
	l := &Limits{}
	if readPerMin > 0 {
		l.Read = NewLimiter(readPerMin, readPerMin/6)
	}
	if writePerMin > 0 {
		l.Write = NewLimiter(writePerMin, writePerMin/6)
	}
	return l
}

// Match returns the limiter for method and path, or nil.
func (l *Limits) Match(method, path string) *Limiter {
	switch {
	case path == "/api/health" || path == "/metrics":
		return nil
	case method == http.MethodGet || method == http.MethodHead:
		return l.Read
	default:
		return l.Write
	}
}

// Middleware rejects requests over budget with 429 and adds X-RateLimit-*
// headers to every limited response.
func (l *Limits) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lim := l.Match(r.Method, r.URL.Path)
		if lim == nil {
			next.ServeHTTP(w, r)
			return
		}
		res := lim.Allow(ClientIP(r))
		WriteHeaders(w, res)
		if !res.Allowed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": "RATE_LIMITED", "message": "Too many requests"},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WriteHeaders writes rate limit headers to the response.
func WriteHeaders(w http.ResponseWriter, res Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	if !res.Allowed {
		h.Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
	}
}

// ClientIP returns the host part of the request's remote address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
