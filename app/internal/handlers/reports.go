package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"statuspage/app/internal/collector"
	"statuspage/app/internal/uptime"
	"statuspage/app/internal/view"
)

// ReportsResponse is the body of /api/reports
type ReportsResponse struct {
	Source    string           `json:"source" yaml:"source"`
	Repo      string           `json:"repo,omitempty" yaml:"repo,omitempty"`
	FetchedAt time.Time        `json:"fetched_at" yaml:"fetched_at"`
	Reports   uptime.ReportSet `json:"report_set" yaml:"report_set"`
	View      view.Page        `json:"view" yaml:"view"`
}

// buildPage loads the snapshot for src and maps it to a page. Repo info
// failures are logged and leave the page without title details.
func (d *Deps) buildPage(ctx context.Context, src source) (*collector.Snapshot, view.Page, error) {
	snap, err := d.Collector.Latest(ctx, src.URL)
	if err != nil {
		return nil, view.Page{}, err
	}
	info, err := d.repoInfo(ctx, src.Repo)
	if err != nil {
		log.Printf("repo info: repo=%s err=%v", src.Repo, err)
	}
	repo := view.Repo{Name: src.Repo, Description: info.Description, Homepage: info.Homepage}
	return snap, view.NewPage(snap.Set, repo, d.clock(), d.Config.Location), nil
}

// HandleReports returns the report set and its view model as JSON or YAML
func HandleReports(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		src, err := d.resolveSource(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_repo", "repo must be in owner/name form")
			return
		}
		snap, page, err := d.buildPage(r.Context(), src)
		if err != nil {
			log.Printf("reports: source=%s err=%v", src.URL, err)
			writeError(w, http.StatusBadGateway, "fetch_failed", "could not load the health-check log")
			return
		}
		writeData(w, r, http.StatusOK, ReportsResponse{
			Source:    src.URL,
			Repo:      src.Repo,
			FetchedAt: snap.FetchedAt,
			Reports:   snap.Set,
			View:      page,
		})
	}
}

// HandleRepo returns description and homepage of the log's repository
func HandleRepo(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, err := d.resolveSource(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_repo", "repo must be in owner/name form")
			return
		}
		if src.Repo == "" {
			writeError(w, http.StatusNotFound, "no_repo", "log source is not a repository")
			return
		}
		info, err := d.repoInfo(r.Context(), src.Repo)
		if err != nil {
			log.Printf("repo info: repo=%s err=%v", src.Repo, err)
			writeError(w, http.StatusBadGateway, "fetch_failed", "could not load repository info")
			return
		}
		writeData(w, r, http.StatusOK, map[string]any{
			"repo":        src.Repo,
			"description": info.Description,
			"homepage":    info.Homepage,
			"title":       view.Title(info.Homepage),
		})
	}
}

// HandleHealth reports whether the default source has a fresh snapshot
func HandleHealth(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url, err := d.Config.SourceURL("")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "config", err.Error())
			return
		}
		resp := map[string]any{"status": "no_data", "last_refresh": nil, "services": 0}
		if last, ok := d.Collector.LastRefresh(url); ok {
			resp["last_refresh"] = last.UTC()
		}
		if snap, ok := d.Collector.Cached(url); ok {
			resp["status"] = "ok"
			resp["services"] = len(snap.Set.Reports)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
