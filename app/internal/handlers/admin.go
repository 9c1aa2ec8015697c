package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"statuspage/app/internal/collector"
	"statuspage/app/internal/database"
	"statuspage/app/internal/models"
)

// HandleRefresh forces a refresh of the request's log source
func HandleRefresh(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		src, err := d.resolveSource(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_repo", "repo must be in owner/name form")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), d.Config.FetchTimeout+5*time.Second)
		defer cancel()
		snap, err := d.Collector.Refresh(ctx, src.URL, collector.SourceAdmin)
		if err != nil {
			log.Printf("admin refresh: source=%s err=%v", src.URL, err)
			writeError(w, http.StatusBadGateway, "fetch_failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":          true,
			"run_id":      snap.RunID,
			"services":    len(snap.Set.Reports),
			"diagnostics": snap.Set.Diagnostics,
		})
	}
}

// HandleRuns lists recent refresh runs, newest first
func HandleRuns() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50, 500)
		offset := queryInt(r, "offset", 0, 0)
		runs, err := database.GetRuns(limit, offset, r.URL.Query().Get("source"))
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		if runs == nil {
			runs = []models.RefreshRun{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	}
}

// HandleRunServices lists the per-service summaries of one run
func HandleRunServices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}
		services, err := database.GetRunServices(id)
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		if services == nil {
			services = []models.ServiceSummary{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"services": services})
	}
}

// HandleGetLogs returns system logs with optional filtering
func HandleGetLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		logs, err := database.GetLogs(
			queryInt(r, "limit", 100, 500),
			q.Get("level"), q.Get("category"), q.Get("service"),
			queryInt(r, "offset", 0, 0),
		)
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		if logs == nil {
			logs = []models.LogEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
	}
}

// HandleGetLogStats returns log counts by level
func HandleGetLogStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.GetLogStats()
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
