package collector

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"statuspage/app/internal/cache"
	"statuspage/app/internal/database"
	"statuspage/app/internal/models"
	"statuspage/app/internal/uptime"
)

const (
	SourceScheduler = "scheduler"
	SourceRequest   = "request"
	SourceAdmin     = "admin"
	SourceCLI       = "cli"
)

// LogFetcher downloads a raw health-check log
type LogFetcher interface {
	FetchLog(ctx context.Context, url string) (string, error)
}

// Snapshot is one successfully generated report set for a log URL
type Snapshot struct {
	URL       string           `json:"url" yaml:"url"`
	RunID     string           `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	FetchedAt time.Time        `json:"fetched_at" yaml:"fetched_at"`
	Set       uptime.ReportSet `json:"report_set" yaml:"report_set"`
}

// Collector fetches logs, aggregates them and keeps the latest snapshot per
// URL in a TTL cache. Runs are recorded in the database when Persist is set.
type Collector struct {
	Fetcher  LogFetcher
	Cache    *cache.Cache[*Snapshot]
	Options  uptime.Options
	Persist  bool
	KeepRuns int
	KeepLogs int

	// OnRefresh, when set, is called after every successful refresh
	OnRefresh func(ctx context.Context, url string, set uptime.ReportSet)

	now func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// New creates a collector
func New(f LogFetcher, c *cache.Cache[*Snapshot], opts uptime.Options) *Collector {
	return &Collector{
		Fetcher: f,
		Cache:   c,
		Options: opts,
		now:     time.Now,
		last:    make(map[string]time.Time),
	}
}

func cacheKey(url string) string {
	return "reports:" + url
}

// Cached returns the snapshot for url if it has not expired
func (c *Collector) Cached(url string) (*Snapshot, bool) {
	if c.Cache == nil {
		return nil, false
	}
	return c.Cache.Get(cacheKey(url))
}

// Latest returns the cached snapshot for url, refreshing it when missing
func (c *Collector) Latest(ctx context.Context, url string) (*Snapshot, error) {
	if snap, ok := c.Cached(url); ok {
		return snap, nil
	}
	return c.Refresh(ctx, url, SourceRequest)
}

// Refresh fetches url and regenerates its reports. A failed fetch produces
// no snapshot and leaves any cached one untouched.
func (c *Collector) Refresh(ctx context.Context, url, source string) (*Snapshot, error) {
	started := c.now()
	run := &models.RefreshRun{Source: source, StartedAt: started}

	text, err := c.Fetcher.FetchLog(ctx, url)
	if err != nil {
		run.DurationMS = c.now().Sub(started).Milliseconds()
		run.Error = err.Error()
		log.Printf("refresh failed: url=%s source=%s err=%v", url, source, err)
		c.record(run, nil, url)
		return nil, fmt.Errorf("refresh %s: %w", url, err)
	}

	set := uptime.Generate(text, c.now(), c.Options)
	run.OK = true
	run.DurationMS = c.now().Sub(started).Milliseconds()
	run.Services = len(set.Reports)
	run.Lines = set.Diagnostics.Lines
	run.Dropped = set.Diagnostics.Dropped()

	summaries := make([]models.ServiceSummary, 0, len(set.Reports))
	for _, r := range set.Reports {
		summaries = append(summaries, models.ServiceSummary{
			ServiceKey: r.Key,
			UpTime:     r.UpTime,
			Status:     string(r.Status),
			Days:       len(r.Days),
		})
	}
	c.record(run, summaries, url)

	snap := &Snapshot{URL: url, RunID: run.ID, FetchedAt: started, Set: set}
	if c.Cache != nil {
		c.Cache.Set(cacheKey(url), snap)
	}
	c.mu.Lock()
	c.last[url] = started
	c.mu.Unlock()

	if c.OnRefresh != nil {
		c.OnRefresh(ctx, url, set)
	}

	log.Printf("refresh ok: url=%s source=%s services=%d lines=%s dropped=%d took=%dms",
		url, source, run.Services, humanize.Comma(int64(run.Lines)), run.Dropped, run.DurationMS)
	return snap, nil
}

// LastRefresh returns when url was last refreshed successfully by this process
func (c *Collector) LastRefresh(url string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.last[url]
	return t, ok
}

// Run refreshes url every interval until ctx is done. The first refresh
// happens immediately.
func (c *Collector) Run(ctx context.Context, url string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_, _ = c.Refresh(ctx, url, SourceScheduler)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Collector) record(run *models.RefreshRun, summaries []models.ServiceSummary, url string) {
	if !c.Persist || database.DB == nil {
		return
	}
	if err := database.InsertRun(run, summaries); err != nil {
		log.Printf("record run failed: url=%s err=%v", url, err)
	}

	level, msg, details := database.LogLevelInfo, "Refresh complete", fmt.Sprintf("services=%d, lines=%d, dropped=%d", run.Services, run.Lines, run.Dropped)
	if !run.OK {
		level, msg, details = database.LogLevelError, "Refresh failed", run.Error
	}
	_ = database.InsertLog(level, database.LogCategoryRefresh, shortSource(url), msg, details)

	if c.KeepRuns > 0 {
		_ = database.PruneRuns(c.KeepRuns)
	}
	if c.KeepLogs > 0 {
		_ = database.PruneLogs(c.KeepLogs)
	}
}

// shortSource trims a raw GitHub log URL down to owner/name for log entries
func shortSource(url string) string {
	const prefix = "https://raw.githubusercontent.com/"
	if rest, ok := strings.CutPrefix(url, prefix); ok {
		parts := strings.SplitN(rest, "/", 3)
		if len(parts) >= 2 {
			return parts[0] + "/" + parts[1]
		}
	}
	return url
}
