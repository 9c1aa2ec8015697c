package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"statuspage/app/internal/alerts"
	"statuspage/app/internal/fetcher"
	"statuspage/app/internal/uptime"
)

// Config holds all application configuration
type Config struct {
	// Admin
	AdminUser      string
	AdminHash      []byte
	HmacSecret     []byte
	InsecureDev    bool
	SessionMaxAgeS int

	// Server
	Port            string
	TrustProxy      bool
	DBPath          string
	EnableScheduler bool
	RefreshInterval time.Duration
	CacheTTL        time.Duration
	KeepRuns        int
	KeepLogs        int

	// Log source
	Repo         string
	LogURL       string
	GitHubAPIURL string
	FetchTimeout time.Duration

	// Aggregation
	MaxDays  int
	Location *time.Location

	// Notifications
	AlertWebhookURL    string
	AlertWebhookSecret string
	AlertDiscordURL    string
	AlertSlackURL      string
	PublicURL          string
}

// Load reads configuration from the environment, after loading a .env file
// if one is present
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AdminUser:       getenv("ADMIN_USER", "admin"),
		InsecureDev:     envBool("INSECURE_DEV", false),
		SessionMaxAgeS:  envInt("SESSION_MAX_AGE_SECONDS", 86400),
		Port:            getenv("PORT", "4555"),
		TrustProxy:      envBool("TRUST_PROXY", false),
		DBPath:          getenv("DB_PATH", "./status.db"),
		EnableScheduler: envBool("ENABLE_SCHEDULER", true),
		RefreshInterval: envDurSecs("REFRESH_SECONDS", 300),
		CacheTTL:        envDurSecs("CACHE_SECONDS", 60),
		KeepRuns:        envInt("KEEP_RUNS", 500),
		KeepLogs:        envInt("KEEP_LOGS", 10000),
		Repo:            getenv("STATUS_REPO", fetcher.DefaultRepo),
		LogURL:          getenv("LOG_URL", ""),
		GitHubAPIURL:    strings.TrimSuffix(getenv("GITHUB_API_URL", fetcher.DefaultAPIBase), "/"),
		FetchTimeout:    envDurSecs("FETCH_TIMEOUT_SECS", 10),
		MaxDays:         envInt("MAX_DAYS", uptime.DefaultMaxDays),

		AlertWebhookURL:    getenv("ALERT_WEBHOOK_URL", ""),
		AlertWebhookSecret: getenv("ALERT_WEBHOOK_SECRET", ""),
		AlertDiscordURL:    getenv("ALERT_DISCORD_URL", ""),
		AlertSlackURL:      getenv("ALERT_SLACK_URL", ""),
		PublicURL:          getenv("PUBLIC_URL", ""),
	}

	if cfg.MaxDays < 1 {
		return nil, fmt.Errorf("MAX_DAYS must be positive, got %d", cfg.MaxDays)
	}
	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("REFRESH_SECONDS must be positive")
	}
	if cfg.LogURL == "" {
		if err := fetcher.ValidateRepo(cfg.Repo); err != nil {
			return nil, fmt.Errorf("STATUS_REPO %q: %w", cfg.Repo, err)
		}
	}

	loc, err := time.LoadLocation(getenv("DISPLAY_TZ", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("DISPLAY_TZ: %w", err)
	}
	cfg.Location = loc

	if err := cfg.loadAdmin(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadAdmin reads the admin credentials. The admin API stays disabled when
// AUTH_SECRET is not set.
func (c *Config) loadAdmin() error {
	secret := getenv("AUTH_SECRET", "")
	if secret == "" {
		return nil
	}
	if len(secret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be at least 32 bytes (use a long random string)")
	}
	c.HmacSecret = []byte(secret)

	if hp := getenv("ADMIN_PASSWORD_BCRYPT", ""); hp != "" {
		c.AdminHash = []byte(hp)
		return nil
	}
	pw := getenv("ADMIN_PASSWORD", "")
	if pw == "" {
		return fmt.Errorf("AUTH_SECRET is set but ADMIN_PASSWORD or ADMIN_PASSWORD_BCRYPT is missing")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	c.AdminHash = h
	return nil
}

// AdminEnabled reports whether admin credentials are configured
func (c *Config) AdminEnabled() bool {
	return len(c.HmacSecret) > 0 && len(c.AdminHash) > 0
}

// Options returns the aggregation options derived from the config
func (c *Config) Options() uptime.Options {
	return uptime.Options{MaxDays: c.MaxDays, Location: c.Location}
}

// Alerts returns the notification channel settings
func (c *Config) Alerts() alerts.Config {
	return alerts.Config{
		WebhookURL:    c.AlertWebhookURL,
		WebhookSecret: c.AlertWebhookSecret,
		DiscordURL:    c.AlertDiscordURL,
		SlackURL:      c.AlertSlackURL,
		StatusPageURL: c.PublicURL,
	}
}

// SourceURL returns the log URL for repo. An empty repo means the configured
// default source: LOG_URL if set, otherwise the STATUS_REPO log.
func (c *Config) SourceURL(repo string) (string, error) {
	if repo == "" {
		if c.LogURL != "" {
			return c.LogURL, nil
		}
		repo = c.Repo
	}
	if err := fetcher.ValidateRepo(repo); err != nil {
		return "", err
	}
	return fetcher.LogURL(repo), nil
}

// Helper functions
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(k string, def bool) bool {
	v := strings.ToLower(getenv(k, ""))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes"
}

func envDurSecs(k string, def int) time.Duration {
	return time.Duration(envInt(k, def)) * time.Second
}
