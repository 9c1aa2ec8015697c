package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	cleanupEvery = 5 * time.Minute
	staleAfter   = 10 * time.Minute
)

// Limiter is a per-key token bucket. Keys are usually client IPs.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	perMin   float64
	max      float64
	message  string
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// Config for creating a new rate limiter
type Config struct {
	TokensPerMinute int    // refill rate
	MaxTokens       int    // burst size, defaults to TokensPerMinute
	ErrorMessage    string // returned to limited clients
}

// New creates a limiter and starts its cleanup goroutine
func New(cfg Config) *Limiter {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = cfg.TokensPerMinute
	}
	if cfg.ErrorMessage == "" {
		cfg.ErrorMessage = "Too many requests. Please slow down."
	}
	l := &Limiter{
		buckets: make(map[string]*bucket),
		perMin:  float64(cfg.TokensPerMinute),
		max:     float64(cfg.MaxTokens),
		message: cfg.ErrorMessage,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.cleanup(time.NewTicker(cleanupEvery))
	return l
}

func (l *Limiter) cleanup(ticker *time.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, b := range l.buckets {
				if now.Sub(b.seen) > staleAfter {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// refill must be called with l.mu held
func (l *Limiter) refill(key string) *bucket {
	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.max, seen: now}
		l.buckets[key] = b
		return b
	}
	b.tokens += now.Sub(b.seen).Minutes() * l.perMin
	if b.tokens > l.max {
		b.tokens = l.max
	}
	b.seen = now
	return b
}

// Allow takes one token for key
func (l *Limiter) Allow(key string) bool {
	return l.AllowN(key, 1)
}

// AllowN takes n tokens for key, or none if fewer are available
func (l *Limiter) AllowN(key string, n int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key)
	if b.tokens < float64(n) {
		return false
	}
	b.tokens -= float64(n)
	return true
}

// Remaining returns the whole tokens left for key
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.buckets[key]; !ok {
		return int(l.max)
	}
	return int(l.refill(key).tokens)
}

// RetryAfter estimates how long until key has a token again
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.buckets[key]; !ok || l.perMin <= 0 {
		return 0
	}
	missing := 1 - l.refill(key).tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(float64(time.Minute) * missing / l.perMin)
}

// ErrorMessage returns the message sent to limited clients
func (l *Limiter) ErrorMessage() string {
	return l.message
}

// Reset forgets key, e.g. after a successful login
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Middleware limits next per key(r). Limited requests get a 429 with a JSON
// body and a Retry-After header.
func (l *Limiter) Middleware(key func(*http.Request) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		k := key(r)
		if l.Allow(k) {
			next.ServeHTTP(w, r)
			return
		}
		secs := int(l.RetryAfter(k).Seconds()) + 1
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "rate_limited",
			"message": l.message,
		})
	})
}
