package ratelimit

import (
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter provides per-key rate limiting for the API
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
}

// NewLimiter creates a new rate limiter
// rps: requests per second per key
// burst: maximum burst size
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow checks if a request for the given key should be allowed
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	limiter, exists := l.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// Middleware creates an HTTP middleware for rate limiting
func (l *Limiter) Middleware(keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(keyFunc(r)) {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPKeyFunc extracts the client IP from the request as the rate limit key
func IPKeyFunc(r *http.Request) string {
	// X-Forwarded-For first, for deployments behind a proxy
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Strip the port from RemoteAddr
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx >= 0 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}
