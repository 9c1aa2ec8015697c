package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	SessionCookie = "sess"
	CSRFCookie    = "csrf"
	CSRFHeader    = "X-CSRF-Token"
)

var (
	ErrNoSession  = errors.New("no session")
	ErrBadSession = errors.New("malformed session")
	ErrBadSig     = errors.New("bad session signature")
	ErrExpired    = errors.New("session expired")
)

// Auth guards the admin endpoints. An Auth without a user, hash or secret is
// disabled and rejects every request.
type Auth struct {
	User           string
	Hash           []byte
	HmacSecret     []byte
	InsecureDev    bool
	SessionMaxAgeS int
}

// Session is the signed cookie payload
type Session struct {
	U   string `json:"u"`
	Exp int64  `json:"exp"`
}

// NewAuth creates a new Auth instance
func NewAuth(user string, hash []byte, secret []byte, insecure bool, maxAge int) *Auth {
	return &Auth{
		User:           user,
		Hash:           hash,
		HmacSecret:     secret,
		InsecureDev:    insecure,
		SessionMaxAgeS: maxAge,
	}
}

// Enabled reports whether admin login is configured
func (a *Auth) Enabled() bool {
	return a != nil && a.User != "" && len(a.Hash) > 0 && len(a.HmacSecret) > 0
}

// SessionMaxAge returns the configured session lifetime
func (a *Auth) SessionMaxAge() time.Duration {
	return time.Duration(a.SessionMaxAgeS) * time.Second
}

// CheckCredentials compares a username and password against the configured admin
func (a *Auth) CheckCredentials(user, password string) bool {
	if !a.Enabled() || user == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.User)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.Hash, []byte(password)) == nil
	return userOK && passOK
}

// SetCSRFCookie issues a fresh CSRF token readable by the page script
func (a *Auth) SetCSRFCookie(w http.ResponseWriter) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	val := base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookie,
		Value:    val,
		Path:     "/",
		MaxAge:   a.SessionMaxAgeS,
		SameSite: http.SameSiteLaxMode,
		Secure:   !a.InsecureDev,
	})
	return val, nil
}

// VerifyCSRF checks that the CSRF header matches the cookie
func (a *Auth) VerifyCSRF(r *http.Request) bool {
	c, err := r.Cookie(CSRFCookie)
	if err != nil || c.Value == "" {
		return false
	}
	h := r.Header.Get(CSRFHeader)
	return h != "" && subtle.ConstantTimeCompare([]byte(c.Value), []byte(h)) == 1
}

// MakeSessionCookie signs a session for username and sets it with a matching
// CSRF cookie
func (a *Auth) MakeSessionCookie(w http.ResponseWriter, username string, maxAge time.Duration) error {
	payload, err := json.Marshal(Session{U: username, Exp: time.Now().Add(maxAge).Unix()})
	if err != nil {
		return err
	}
	val := base64.RawURLEncoding.EncodeToString(payload) + "." + a.sign(payload)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    val,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !a.InsecureDev,
	})
	_, err = a.SetCSRFCookie(w)
	return err
}

// ClearSessionCookie expires both session cookies
func (a *Auth) ClearSessionCookie(w http.ResponseWriter) {
	for _, name := range []string{SessionCookie, CSRFCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == SessionCookie,
			SameSite: http.SameSiteLaxMode,
			Secure:   !a.InsecureDev,
		})
	}
}

// ParseSession validates the session cookie on r
func (a *Auth) ParseSession(r *http.Request) (*Session, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}
	encoded, sig, ok := strings.Cut(c.Value, ".")
	if !ok {
		return nil, ErrBadSession
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrBadSession
	}
	if !hmac.Equal([]byte(a.sign(raw)), []byte(sig)) {
		return nil, ErrBadSig
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, ErrBadSession
	}
	if time.Now().Unix() > s.Exp {
		return nil, ErrExpired
	}
	return &s, nil
}

// RequireAuth wraps next so it only runs for a signed-in admin. Requests
// other than GET must also carry a valid CSRF token.
func (a *Auth) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			http.Error(w, "admin disabled", http.StatusNotFound)
			return
		}
		if _, err := a.ParseSession(r); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet && !a.VerifyCSRF(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (a *Auth) sign(b []byte) string {
	m := hmac.New(sha256.New, a.HmacSecret)
	m.Write(b)
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}
