package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"statuspage/app/internal/database"
)

// HandleWhoAmI returns current authentication status
func HandleWhoAmI(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Enabled       bool   `json:"admin_enabled"`
			Authenticated bool   `json:"authenticated"`
			User          string `json:"user,omitempty"`
		}
		me := resp{Enabled: d.Auth.Enabled()}
		if s, err := d.Auth.ParseSession(r); err == nil {
			me.Authenticated = true
			me.User = s.U
		}
		writeJSON(w, http.StatusOK, me)
	}
}

// HandleLogin authenticates the admin and sets the session cookies
func HandleLogin(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !d.Auth.Enabled() {
			writeError(w, http.StatusNotFound, "admin_disabled", "admin login is not configured")
			return
		}

		var c struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			log.Printf("login: decode error: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		ip := d.clientIP(r)
		if d.Guard != nil {
			if blocked, until := d.Guard.Blocked(ip); blocked {
				log.Printf("login: ip=%s blocked until %s", ip, until.Format(time.RFC3339))
				writeJSON(w, http.StatusForbidden, map[string]any{
					"error":      "access_blocked",
					"message":    "Too many failed login attempts",
					"expires_at": until.UTC(),
				})
				return
			}
		}

		if !d.Auth.CheckCredentials(c.Username, c.Password) {
			log.Printf("login: failed for user=%q ip=%s", c.Username, ip)
			blocked := d.Guard != nil && d.Guard.Fail(ip)
			details := fmt.Sprintf("user=%s, ip=%s", c.Username, ip)
			if blocked {
				details += ", blocked=true"
			}
			_ = database.InsertLog(database.LogLevelWarn, database.LogCategorySecurity, "", "Failed admin login", details)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if d.Guard != nil {
			d.Guard.Clear(ip)
		}
		if err := d.Auth.MakeSessionCookie(w, c.Username, d.Auth.SessionMaxAge()); err != nil {
			log.Printf("login: session error: %v", err)
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		log.Printf("login: success for user=%s ip=%s", c.Username, ip)
		_ = database.InsertLog(database.LogLevelInfo, database.LogCategorySecurity, "", "Admin login", "ip="+ip)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// HandleLogout clears the session cookies
func HandleLogout(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		d.Auth.ClearSessionCookie(w)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}
