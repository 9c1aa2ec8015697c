package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeClock lets tests move time forward without sleeping
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *fakeClock) {
	t.Helper()
	l := New(cfg)
	t.Cleanup(l.Stop)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l.now = clock.now
	return l, clock
}

// --------------- New ---------------

func TestNew_Defaults(t *testing.T) {
	l, _ := newTestLimiter(t, Config{TokensPerMinute: 10})
	if l.max != 10 {
		t.Errorf("expected max=10, got %v", l.max)
	}
	if l.ErrorMessage() == "" {
		t.Error("expected a default error message")
	}
}

func TestNew_CustomMaxTokens(t *testing.T) {
	l, _ := newTestLimiter(t, Config{TokensPerMinute: 10, MaxTokens: 20, ErrorMessage: "slow down"})
	if l.max != 20 {
		t.Errorf("expected max=20, got %v", l.max)
	}
	if l.ErrorMessage() != "slow down" {
		t.Errorf("unexpected message %q", l.ErrorMessage())
	}
}

// --------------- Allow ---------------

func TestAllow_WithinAndOverLimit(t *testing.T) {
	l, _ := newTestLimiter(t, Config{TokensPerMinute: 5})
	for i := 0; i < 5; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Error("request should be denied after exceeding limit")
	}
}

func TestAllow_DifferentKeys(t *testing.T) {
	l, _ := newTestLimiter(t, Config{TokensPerMinute: 2})
	l.Allow("ip1")
	l.Allow("ip1")
	if !l.Allow("ip2") {
		t.Error("different key should have its own bucket")
	}
	if l.Allow("ip1") {
		t.Error("ip1 should be rate limited")
	}
}

func TestAllowN(t *testing.T) {
	l, _ := newTestLimiter(t, Config{TokensPerMinute: 10})
	if !l.AllowN("key", 5) || !l.AllowN("key", 5) {
		t.Fatal("two batches of 5 should fit in 10 tokens")
	}
	if l.AllowN("key", 1) {
		t.Error("AllowN(1) should fail when 0 tokens remaining")
	}
}

func TestRefill(t *testing.T) {
	l, clock := newTestLimiter(t, Config{TokensPerMinute: 60})
	for i := 0; i < 60; i++ {
		l.Allow("k")
	}
	if l.Allow("k") {
		t.Fatal("should be limited after draining")
	}
	clock.advance(time.Second)
	if !l.Allow("k") {
		t.Error("one second at 60/min should refill one token")
	}
	clock.advance(time.Hour)
	if got := l.Remaining("k"); got != 60 {
		t.Errorf("refill should cap at max, got %d", got)
	}
}

// --------------- Remaining / RetryAfter / Reset ---------------

func TestRemaining(t *testing.T) {
	l, _ := newTestLimiter(t, Config{TokensPerMinute: 10})
	if rem := l.Remaining("new-key"); rem != 10 {
		t.Errorf("expected 10 remaining for new key, got %d", rem)
	}
	l.Allow("new-key")
	if rem := l.Remaining("new-key"); rem != 9 {
		t.Errorf("expected 9 remaining after 1 request, got %d", rem)
	}
}

func TestRetryAfter(t *testing.T) {
	l, _ := newTestLimiter(t, Config{TokensPerMinute: 6, MaxTokens: 1})
	if d := l.RetryAfter("k"); d != 0 {
		t.Errorf("unknown key should not wait, got %v", d)
	}
	l.Allow("k")
	if d := l.RetryAfter("k"); d != 10*time.Second {
		t.Errorf("expected 10s at 6/min, got %v", d)
	}
}

func TestReset(t *testing.T) {
	l, _ := newTestLimiter(t, Config{TokensPerMinute: 1})
	l.Allow("victim")
	if l.Allow("victim") {
		t.Fatal("should be rate limited")
	}
	l.Reset("victim")
	if !l.Allow("victim") {
		t.Error("should be allowed after reset")
	}
}

func TestStop_Twice(t *testing.T) {
	l := New(Config{TokensPerMinute: 10})
	l.Stop()
	l.Stop()
}

// --------------- Middleware ---------------

func TestMiddleware(t *testing.T) {
	l, _ := newTestLimiter(t, Config{TokensPerMinute: 1, ErrorMessage: "limited"})
	h := l.Middleware(func(r *http.Request) string { return r.RemoteAddr }, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest("GET", "/api/reports", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request: expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "61" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}
