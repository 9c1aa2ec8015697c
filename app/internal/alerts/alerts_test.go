package alerts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"statuspage/app/internal/database"
	"statuspage/app/internal/uptime"
)

func initTestDB(t *testing.T) {
	t.Helper()
	if err := database.Init(":memory:"); err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
}

func ratio(v float64) *float64 { return &v }

var at = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

// set builds a report set where each service's today slot is the given ratio
// (nil for no data)
func set(today map[string]*float64) uptime.ReportSet {
	rs := uptime.ReportSet{GeneratedAt: at, MaxDays: 3}
	for _, key := range []string{"api", "cdn", "web"} {
		r, ok := today[key]
		if !ok {
			continue
		}
		w := make(uptime.Window, 3)
		w[0] = r
		rs.Reports = append(rs.Reports, uptime.ServiceReport{Key: key, UpTime: "50.00%", Window: w})
	}
	return rs
}

type received struct {
	mu     sync.Mutex
	bodies []map[string]any
	sigs   []string
}

func (r *received) snapshot() ([]map[string]any, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.bodies...), append([]string(nil), r.sigs...)
}

func (r *received) server(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		raw, _ := io.ReadAll(req.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		r.mu.Lock()
		r.bodies = append(r.bodies, body)
		r.sigs = append(r.sigs, req.Header.Get(signatureHeader))
		r.mu.Unlock()
		if sig := req.Header.Get(signatureHeader); sig != "" && sig != Sign("s3cret", raw) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// --------------- normalizeStatusPageURL ---------------

func TestNormalizeStatusPageURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"   ", ""},
		{"http://example.com", "http://example.com"},
		{"https://example.com", "https://example.com"},
		{"example.com", "http://example.com"},
		{"  https://status.example.com  ", "https://status.example.com"},
	}
	for _, tt := range tests {
		if got := normalizeStatusPageURL(tt.in); got != tt.want {
			t.Errorf("normalizeStatusPageURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --------------- Change ---------------

func TestChange_KindAndSubject(t *testing.T) {
	tests := []struct {
		to      uptime.Status
		kind    string
		subject string
	}{
		{uptime.StatusSuccess, "up", "Service Recovered: api"},
		{uptime.StatusPartial, "degraded", "Partial Outage: api"},
		{uptime.StatusFailure, "down", "Major Outage: api"},
	}
	for _, tt := range tests {
		ch := Change{ServiceKey: "api", From: uptime.StatusSuccess, To: tt.to}
		if ch.Kind() != tt.kind || ch.Subject() != tt.subject {
			t.Errorf("to=%s: kind=%q subject=%q", tt.to, ch.Kind(), ch.Subject())
		}
	}
	msg := Change{ServiceKey: "api", From: uptime.StatusSuccess, To: uptime.StatusFailure, UpTime: "10.00%"}.Message()
	if msg != "api changed from Fully Operational to Major Outage today (uptime 10.00%)." {
		t.Errorf("Message = %q", msg)
	}
}

// --------------- Tracker ---------------

func TestTracker_Observe(t *testing.T) {
	tr := NewTracker()

	if got := tr.Observe("src", set(map[string]*float64{"api": ratio(1), "web": ratio(1)})); len(got) != 0 {
		t.Fatalf("first observation should not report changes, got %v", got)
	}

	got := tr.Observe("src", set(map[string]*float64{"api": ratio(0), "web": ratio(1)}))
	if len(got) != 1 {
		t.Fatalf("expected 1 change, got %v", got)
	}
	if got[0].ServiceKey != "api" || got[0].From != uptime.StatusSuccess || got[0].To != uptime.StatusFailure {
		t.Errorf("change = %+v", got[0])
	}
	if !got[0].At.Equal(at) || got[0].Source != "src" {
		t.Errorf("change metadata = %+v", got[0])
	}

	if got := tr.Observe("src", set(map[string]*float64{"api": ratio(0), "web": ratio(1)})); len(got) != 0 {
		t.Errorf("unchanged statuses should not report, got %v", got)
	}
}

func TestTracker_IgnoresNoData(t *testing.T) {
	tr := NewTracker()
	tr.Observe("src", set(map[string]*float64{"api": ratio(1)}))
	if got := tr.Observe("src", set(map[string]*float64{"api": nil})); len(got) != 0 {
		t.Errorf("move into nodata should be ignored, got %v", got)
	}
	if got := tr.Observe("src", set(map[string]*float64{"api": ratio(0.5)})); len(got) != 0 {
		t.Errorf("move out of nodata should be ignored, got %v", got)
	}
}

func TestTracker_SourcesAndRemovedServices(t *testing.T) {
	tr := NewTracker()
	tr.Observe("a", set(map[string]*float64{"api": ratio(1)}))
	if got := tr.Observe("b", set(map[string]*float64{"api": ratio(0)})); len(got) != 0 {
		t.Errorf("sources must be tracked separately, got %v", got)
	}

	tr.Observe("a", set(map[string]*float64{"cdn": ratio(1)}))
	if got := tr.Observe("a", set(map[string]*float64{"api": ratio(0)})); len(got) != 0 {
		t.Errorf("a service that disappeared should start fresh, got %v", got)
	}
}

// --------------- Manager ---------------

func TestConfig_Enabled(t *testing.T) {
	if (Config{StatusPageURL: "x"}).Enabled() {
		t.Error("status page URL alone should not enable alerts")
	}
	if !(Config{SlackURL: "http://x"}).Enabled() {
		t.Error("slack URL should enable alerts")
	}
}

func TestNotify_Disabled(t *testing.T) {
	m := NewManager(Config{})
	m.Notify(context.Background(), "src", set(map[string]*float64{"api": ratio(1)}))
	if got := m.Notify(context.Background(), "src", set(map[string]*float64{"api": ratio(0)})); len(got) != 1 {
		t.Errorf("changes are still tracked when disabled, got %v", got)
	}
}

func TestNotify_AllChannels(t *testing.T) {
	initTestDB(t)
	var hook, discord, slack received
	m := NewManager(Config{
		WebhookURL:    hook.server(t, http.StatusOK).URL,
		WebhookSecret: "s3cret",
		DiscordURL:    discord.server(t, http.StatusNoContent).URL,
		SlackURL:      slack.server(t, http.StatusOK).URL,
		StatusPageURL: "status.example.com",
	})

	ctx := context.Background()
	m.Notify(ctx, "src", set(map[string]*float64{"api": ratio(1)}))
	m.Notify(ctx, "src", set(map[string]*float64{"api": ratio(0.1)}))
	m.Wait()

	hookBodies, hookSigs := hook.snapshot()
	discordBodies, discordSigs := discord.snapshot()
	slackBodies, slackSigs := slack.snapshot()
	if len(hookBodies) != 1 || len(discordBodies) != 1 || len(slackBodies) != 1 {
		t.Fatalf("deliveries: webhook=%d discord=%d slack=%d", len(hookBodies), len(discordBodies), len(slackBodies))
	}
	body := hookBodies[0]
	if body["event"] != "status_change" || body["status"] != "down" || body["service_key"] != "api" {
		t.Errorf("webhook body = %v", body)
	}
	if body["status_page"] != "http://status.example.com" {
		t.Errorf("status_page = %v", body["status_page"])
	}
	if hookSigs[0] == "" {
		t.Error("webhook should be signed when a secret is set")
	}
	if discordSigs[0] != "" || slackSigs[0] != "" {
		t.Error("only the generic webhook is signed")
	}
	if _, ok := discordBodies[0]["embeds"]; !ok {
		t.Errorf("discord body = %v", discordBodies[0])
	}
	if _, ok := slackBodies[0]["attachments"]; !ok {
		t.Errorf("slack body = %v", slackBodies[0])
	}

	logs, _ := database.GetLogs(10, database.LogLevelInfo, database.LogCategoryNotification, "api", 0)
	if len(logs) != 3 {
		t.Errorf("expected 3 sent log entries, got %d", len(logs))
	}
}

func TestNotify_FailedDeliveryLogged(t *testing.T) {
	initTestDB(t)
	var hook received
	m := NewManager(Config{WebhookURL: hook.server(t, http.StatusInternalServerError).URL})

	m.Notify(context.Background(), "src", set(map[string]*float64{"api": ratio(0)}))
	m.Notify(context.Background(), "src", set(map[string]*float64{"api": ratio(1)}))
	m.Wait()

	logs, _ := database.GetLogs(10, database.LogLevelError, database.LogCategoryNotification, "", 0)
	if len(logs) != 1 {
		t.Fatalf("expected 1 failure log entry, got %d", len(logs))
	}
	if logs[0].Details != "http 500" {
		t.Errorf("details = %q", logs[0].Details)
	}
}

func TestSign(t *testing.T) {
	a := Sign("k", []byte("body"))
	if a != Sign("k", []byte("body")) {
		t.Error("signature should be deterministic")
	}
	if a == Sign("other", []byte("body")) {
		t.Error("signature should depend on the secret")
	}
	if len(a) != len("sha256=")+64 {
		t.Errorf("unexpected signature %q", a)
	}
}

func TestHook_OnlyWatchedSource(t *testing.T) {
	initTestDB(t)
	var hook received
	m := NewManager(Config{WebhookURL: hook.server(t, http.StatusOK).URL})
	onRefresh := m.Hook("https://example.com/log.csv")

	ctx := context.Background()
	onRefresh(ctx, "https://example.com/other.csv", set(map[string]*float64{"api": ratio(1)}))
	onRefresh(ctx, "https://example.com/other.csv", set(map[string]*float64{"api": ratio(0)}))
	m.Wait()
	if bodies, _ := hook.snapshot(); len(bodies) != 0 {
		t.Fatalf("refreshes of other sources must not notify, got %d deliveries", len(bodies))
	}

	onRefresh(ctx, "https://example.com/log.csv", set(map[string]*float64{"api": ratio(1)}))
	onRefresh(ctx, "https://example.com/log.csv", set(map[string]*float64{"api": ratio(0)}))
	m.Wait()
	if bodies, _ := hook.snapshot(); len(bodies) != 1 {
		t.Errorf("expected 1 delivery for the watched source, got %d", len(bodies))
	}
}

func TestNotify_DetachedFromCaller(t *testing.T) {
	initTestDB(t)
	var hook received
	m := NewManager(Config{WebhookURL: hook.server(t, http.StatusOK).URL})

	ctx, cancel := context.WithCancel(context.Background())
	m.Notify(ctx, "src", set(map[string]*float64{"api": ratio(1)}))
	m.Notify(ctx, "src", set(map[string]*float64{"api": ratio(0)}))
	cancel()
	m.Wait()

	if bodies, _ := hook.snapshot(); len(bodies) != 1 {
		t.Errorf("delivery should survive the caller's cancellation, got %d", len(bodies))
	}
}
