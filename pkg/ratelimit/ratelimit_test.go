package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	// The bucket starts with 2 tokens; each Allow consumes one
	limiter := NewLimiter(10, 2)

	if !limiter.Allow("status-client") {
		t.Error("First request should be allowed")
	}
	if !limiter.Allow("status-client") {
		t.Error("Second request should be allowed")
	}
	if limiter.Allow("status-client") {
		t.Error("Third request should be rate limited")
	}

	// Different keys have independent buckets
	if !limiter.Allow("other-client") {
		t.Error("Request for a different key should be allowed")
	}

	// 10 req/s refills one token every 100ms
	time.Sleep(150 * time.Millisecond)
	if !limiter.Allow("status-client") {
		t.Error("Request after refill should be allowed")
	}
}

func TestMiddleware(t *testing.T) {
	limiter := NewLimiter(10, 1)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := limiter.Middleware(func(r *http.Request) string {
		return "fixed-key"
	})(handler)

	req := httptest.NewRequest("GET", "/api/bandit/status", nil)
	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("First request should succeed, got status %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	wrapped.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("Second request should be limited, got status %d", rr.Code)
	}
}

func TestIPKeyFunc(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.2.3:51234"
	if got := IPKeyFunc(req); got != "10.1.2.3" {
		t.Errorf("IPKeyFunc = %q, want 10.1.2.3", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	if got := IPKeyFunc(req); got != "203.0.113.7" {
		t.Errorf("IPKeyFunc with XFF = %q, want 203.0.113.7", got)
	}
}
