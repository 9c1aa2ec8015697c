package alerts

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"statuspage/app/internal/database"
	"statuspage/app/internal/uptime"
)

// Config selects the channels status changes are sent to. Empty URLs
// disable a channel.
type Config struct {
	WebhookURL    string
	WebhookSecret string
	DiscordURL    string
	SlackURL      string
	StatusPageURL string
}

// Enabled reports whether any channel is configured
func (c Config) Enabled() bool {
	return c.WebhookURL != "" || c.DiscordURL != "" || c.SlackURL != ""
}

// Change is a service whose status for today moved between two data-bearing
// states across refreshes
type Change struct {
	Source     string        `json:"source"`
	ServiceKey string        `json:"service_key"`
	From       uptime.Status `json:"from"`
	To         uptime.Status `json:"to"`
	UpTime     string        `json:"uptime"`
	At         time.Time     `json:"at"`
}

// Kind maps the new status to the event name used by every channel
func (c Change) Kind() string {
	switch c.To {
	case uptime.StatusSuccess:
		return "up"
	case uptime.StatusPartial:
		return "degraded"
	case uptime.StatusFailure:
		return "down"
	default:
		return "unknown"
	}
}

// Subject is the one-line summary of the change
func (c Change) Subject() string {
	switch c.Kind() {
	case "up":
		return "Service Recovered: " + c.ServiceKey
	case "degraded":
		return "Partial Outage: " + c.ServiceKey
	default:
		return "Major Outage: " + c.ServiceKey
	}
}

// Message is the longer description of the change
func (c Change) Message() string {
	return fmt.Sprintf("%s changed from %s to %s today (uptime %s).", c.ServiceKey, c.From.Label(), c.To.Label(), c.UpTime)
}

// Tracker remembers the last seen status of today per source and service
type Tracker struct {
	mu   sync.Mutex
	last map[string]map[string]uptime.Status
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{last: make(map[string]map[string]uptime.Status)}
}

// Observe records the statuses in set and returns the transitions since the
// previous observation of source. Services seen for the first time, and
// moves into or out of nodata, are not transitions. Services missing from
// set are forgotten.
func (t *Tracker) Observe(source string, set uptime.ReportSet) []Change {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.last[source]
	next := make(map[string]uptime.Status, len(set.Reports))
	var changes []Change

	for _, r := range set.Reports {
		status := uptime.Classify(r.Window.Today())
		next[r.Key] = status

		old, seen := prev[r.Key]
		if !seen || old == status || old == uptime.StatusNoData || status == uptime.StatusNoData {
			continue
		}
		changes = append(changes, Change{
			Source:     source,
			ServiceKey: r.Key,
			From:       old,
			To:         status,
			UpTime:     r.UpTime,
			At:         set.GeneratedAt,
		})
	}

	t.last[source] = next
	return changes
}

// Manager sends status changes to the configured channels
type Manager struct {
	cfg     Config
	client  *http.Client
	tracker *Tracker

	wg sync.WaitGroup
}

// NewManager creates a manager for cfg
func NewManager(cfg Config) *Manager {
	cfg.StatusPageURL = normalizeStatusPageURL(cfg.StatusPageURL)
	return &Manager{
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		tracker: NewTracker(),
	}
}

// Config returns the manager's configuration
func (m *Manager) Config() Config {
	return m.cfg
}

// Notify compares set against the previous set for source and returns the
// transitions found. Delivery happens in the background, detached from
// ctx's cancellation; Wait blocks until it is done.
func (m *Manager) Notify(ctx context.Context, source string, set uptime.ReportSet) []Change {
	changes := m.tracker.Observe(source, set)
	if !m.cfg.Enabled() || len(changes) == 0 {
		return changes
	}
	ctx = context.WithoutCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for _, ch := range changes {
			log.Printf("status change: service=%s from=%s to=%s", ch.ServiceKey, ch.From, ch.To)
			m.dispatch(ctx, ch)
		}
	}()
	return changes
}

// Wait blocks until every pending delivery has finished
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Hook returns a refresh callback that notifies for url only. Refreshes of
// any other source are ignored.
func (m *Manager) Hook(url string) func(ctx context.Context, refreshed string, set uptime.ReportSet) {
	return func(ctx context.Context, refreshed string, set uptime.ReportSet) {
		if refreshed != url {
			return
		}
		m.Notify(ctx, refreshed, set)
	}
}

type channel struct {
	name string
	url  string
	send func(context.Context, Change) error
}

// dispatch sends ch to all enabled channels concurrently and records each
// outcome in the system log
func (m *Manager) dispatch(ctx context.Context, ch Change) {
	channels := []channel{
		{"webhook", m.cfg.WebhookURL, m.sendWebhook},
		{"discord", m.cfg.DiscordURL, m.sendDiscord},
		{"slack", m.cfg.SlackURL, m.sendSlack},
	}

	var g errgroup.Group
	for _, c := range channels {
		if c.url == "" {
			continue
		}
		c := c
		g.Go(func() error {
			if err := c.send(ctx, ch); err != nil {
				log.Printf("notify %s failed: service=%s err=%v", c.name, ch.ServiceKey, err)
				_ = database.InsertLog(database.LogLevelError, database.LogCategoryNotification, ch.ServiceKey,
					strings.ToUpper(c.name[:1])+c.name[1:]+" notification failed", err.Error())
				return nil
			}
			_ = database.InsertLog(database.LogLevelInfo, database.LogCategoryNotification, ch.ServiceKey,
				strings.ToUpper(c.name[:1])+c.name[1:]+" notification sent", ch.Kind())
			return nil
		})
	}
	_ = g.Wait()
}

func normalizeStatusPageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "http://" + raw
	}
	return raw
}
