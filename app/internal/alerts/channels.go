package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	userAgent       = "statuspage"
	signatureHeader = "X-Statuspage-Signature"
)

var discordColors = map[string]int{"down": 0xef4444, "degraded": 0xeab308, "up": 0x22c55e}
var slackColors = map[string]string{"down": "#ef4444", "degraded": "#eab308", "up": "#22c55e"}

// post sends body as JSON and treats any non-2xx answer as an error
func (m *Manager) post(ctx context.Context, url string, body []byte, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret, prefixed with the
// algorithm name
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (m *Manager) sendWebhook(ctx context.Context, ch Change) error {
	body, err := json.Marshal(map[string]any{
		"event":       "status_change",
		"source":      ch.Source,
		"service_key": ch.ServiceKey,
		"status":      ch.Kind(),
		"from":        ch.From,
		"to":          ch.To,
		"uptime":      ch.UpTime,
		"subject":     ch.Subject(),
		"message":     ch.Message(),
		"status_page": m.cfg.StatusPageURL,
		"timestamp":   ch.At.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	header := http.Header{}
	if m.cfg.WebhookSecret != "" {
		header.Set(signatureHeader, Sign(m.cfg.WebhookSecret, body))
	}
	return m.post(ctx, m.cfg.WebhookURL, body, header)
}

func (m *Manager) sendDiscord(ctx context.Context, ch Change) error {
	embed := map[string]any{
		"title":       ch.Subject(),
		"description": ch.Message(),
		"color":       discordColors[ch.Kind()],
		"fields": []map[string]any{
			{"name": "Service", "value": ch.ServiceKey, "inline": true},
			{"name": "Status", "value": strings.ToUpper(ch.Kind()), "inline": true},
			{"name": "Uptime", "value": ch.UpTime, "inline": true},
		},
	}
	if m.cfg.StatusPageURL != "" {
		embed["url"] = m.cfg.StatusPageURL
	}
	body, err := json.Marshal(map[string]any{
		"username": "Status Page",
		"embeds":   []map[string]any{embed},
	})
	if err != nil {
		return err
	}
	return m.post(ctx, m.cfg.DiscordURL, body, nil)
}

func (m *Manager) sendSlack(ctx context.Context, ch Change) error {
	attachment := map[string]any{
		"color": slackColors[ch.Kind()],
		"title": ch.Subject(),
		"text":  ch.Message(),
		"fields": []map[string]any{
			{"title": "Service", "value": ch.ServiceKey, "short": true},
			{"title": "Status", "value": strings.ToUpper(ch.Kind()), "short": true},
		},
		"ts": ch.At.Unix(),
	}
	if m.cfg.StatusPageURL != "" {
		attachment["title_link"] = m.cfg.StatusPageURL
	}
	body, err := json.Marshal(map[string]any{
		"username":    "Status Page",
		"attachments": []map[string]any{attachment},
	})
	if err != nil {
		return err
	}
	return m.post(ctx, m.cfg.SlackURL, body, nil)
}
