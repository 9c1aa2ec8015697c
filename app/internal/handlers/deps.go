package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"statuspage/app/internal/auth"
	"statuspage/app/internal/cache"
	"statuspage/app/internal/collector"
	"statuspage/app/internal/config"
	"statuspage/app/internal/fetcher"
	"statuspage/app/internal/security"
)

// RepoInfoFetcher loads repository metadata for the page header
type RepoInfoFetcher interface {
	FetchRepoInfo(ctx context.Context, repo string) (fetcher.RepoInfo, error)
}

// Deps bundles what the handlers need
type Deps struct {
	Config    *config.Config
	Auth      *auth.Auth
	Collector *collector.Collector
	Repos     RepoInfoFetcher
	RepoCache *cache.Cache[fetcher.RepoInfo]
	Guard     *security.LoginGuard

	now func() time.Time
}

func (d *Deps) clock() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}

// clientIP keys rate limits and login blocks
func (d *Deps) clientIP(r *http.Request) string {
	return security.IPKey(d.Config != nil && d.Config.TrustProxy)(r)
}

// source is the log a request is about
type source struct {
	URL  string
	Repo string // empty when LOG_URL is used
}

var errBadRepo = errors.New("invalid repo parameter")

// resolveSource reads ?repo= and falls back to the configured source
func (d *Deps) resolveSource(r *http.Request) (source, error) {
	repo := r.URL.Query().Get("repo")
	url, err := d.Config.SourceURL(repo)
	if err != nil {
		return source{}, errBadRepo
	}
	if repo == "" && d.Config.LogURL == "" {
		repo = d.Config.Repo
	}
	return source{URL: url, Repo: repo}, nil
}

// repoInfo returns metadata for repo, cached on success
func (d *Deps) repoInfo(ctx context.Context, repo string) (fetcher.RepoInfo, error) {
	if repo == "" || d.Repos == nil {
		return fetcher.RepoInfo{}, nil
	}
	if d.RepoCache != nil {
		if info, ok := d.RepoCache.Get(repo); ok {
			return info, nil
		}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	info, err := d.Repos.FetchRepoInfo(ctx, repo)
	if err != nil {
		return fetcher.RepoInfo{}, err
	}
	if d.RepoCache != nil {
		d.RepoCache.Set(repo, info)
	}
	return info, nil
}
