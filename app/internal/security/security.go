package security

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// MaxBodyBytes caps request bodies; the only bodies accepted are login forms
const MaxBodyBytes = 64 << 10

const csp = "default-src 'none'; script-src 'self' https://cdn.jsdelivr.net; style-src 'self' https://cdn.jsdelivr.net; img-src 'self' data:; connect-src 'self'; font-src 'self' https://cdn.jsdelivr.net; frame-ancestors 'none'; base-uri 'self'; form-action 'self'"

// SecureHeaders adds security headers to responses
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
		h := w.Header()
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// ClientIP extracts the client IP from the request, preferring the first
// X-Forwarded-For entry. Only use it behind a proxy that sets that header.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return RemoteIP(r)
}

// RemoteIP returns the address of the peer connection, ignoring headers
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// IPKey picks the client address function. Forwarded headers are client
// controlled, so they are only honored when trustProxy is set.
func IPKey(trustProxy bool) func(*http.Request) string {
	if trustProxy {
		return ClientIP
	}
	return RemoteIP
}

// LoginGuard blocks an IP for BlockFor once it has failed MaxAttempts logins
// inside BlockFor
type LoginGuard struct {
	MaxAttempts int
	BlockFor    time.Duration

	mu       sync.Mutex
	attempts map[string]*loginAttempts
	now      func() time.Time
}

type loginAttempts struct {
	count        int
	first        time.Time
	blockedUntil time.Time
}

// NewLoginGuard creates a guard with the given thresholds
func NewLoginGuard(maxAttempts int, blockFor time.Duration) *LoginGuard {
	return &LoginGuard{
		MaxAttempts: maxAttempts,
		BlockFor:    blockFor,
		attempts:    make(map[string]*loginAttempts),
		now:         time.Now,
	}
}

// Blocked reports whether ip is currently blocked and until when
func (g *LoginGuard) Blocked(ip string) (bool, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.attempts[ip]
	if !ok {
		return false, time.Time{}
	}
	if g.now().Before(a.blockedUntil) {
		return true, a.blockedUntil
	}
	return false, time.Time{}
}

// Fail records a failed login and reports whether ip is now blocked
func (g *LoginGuard) Fail(ip string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	a, ok := g.attempts[ip]
	if !ok || (now.Sub(a.first) > g.BlockFor && !now.Before(a.blockedUntil)) {
		a = &loginAttempts{first: now}
		g.attempts[ip] = a
	}
	a.count++
	if a.count >= g.MaxAttempts {
		a.blockedUntil = now.Add(g.BlockFor)
		return true
	}
	return false
}

// Clear forgets ip, used after a successful login
func (g *LoginGuard) Clear(ip string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.attempts, ip)
}

// Len returns the number of tracked IPs
func (g *LoginGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.attempts)
}
