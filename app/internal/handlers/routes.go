package handlers

import (
	"net/http"

	"statuspage/app/internal/ratelimit"
	"statuspage/app/internal/security"
)

// Limiters are the per-IP rate limiters used by the router
type Limiters struct {
	API   *ratelimit.Limiter
	Login *ratelimit.Limiter
}

// NewLimiters creates the default limiters
func NewLimiters() *Limiters {
	return &Limiters{
		API: ratelimit.New(ratelimit.Config{
			TokensPerMinute: 120,
			ErrorMessage:    "Too many requests. Please slow down.",
		}),
		Login: ratelimit.New(ratelimit.Config{
			TokensPerMinute: 10,
			ErrorMessage:    "Too many login attempts. Please try again later.",
		}),
	}
}

// Stop ends the limiters' cleanup goroutines
func (l *Limiters) Stop() {
	l.API.Stop()
	l.Login.Stop()
}

// SetupRoutes configures all HTTP routes and middlewares
func SetupRoutes(d *Deps, lim *Limiters) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/api/reports", HandleReports(d))
	api.HandleFunc("/api/repo", HandleRepo(d))
	api.HandleFunc("/api/me", HandleWhoAmI(d))

	admin := http.NewServeMux()
	admin.HandleFunc("/api/admin/refresh", d.Auth.RequireAuth(HandleRefresh(d)))
	admin.HandleFunc("/api/admin/runs", d.Auth.RequireAuth(HandleRuns()))
	admin.HandleFunc("/api/admin/run", d.Auth.RequireAuth(HandleRunServices()))
	admin.HandleFunc("/api/admin/logs", d.Auth.RequireAuth(HandleGetLogs()))
	admin.HandleFunc("/api/admin/logs/stats", d.Auth.RequireAuth(HandleGetLogStats()))

	login := http.NewServeMux()
	login.HandleFunc("/api/login", HandleLogin(d))
	login.HandleFunc("/api/logout", HandleLogout(d))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", HandleHealth(d))
	mux.Handle("/api/login", lim.Login.Middleware(d.clientIP, login))
	mux.Handle("/api/logout", lim.Login.Middleware(d.clientIP, login))
	mux.Handle("/api/admin/", lim.API.Middleware(d.clientIP, admin))
	mux.Handle("/api/", lim.API.Middleware(d.clientIP, api))
	mux.HandleFunc("/static/", HandleStatic())
	mux.HandleFunc("/", HandleIndex(d))

	return security.SecureHeaders(GzipMiddleware(mux))
}
