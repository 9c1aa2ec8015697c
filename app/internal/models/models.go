package models

import "time"

// RefreshRun records one fetch-and-aggregate pass over a log source
type RefreshRun struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	Services   int       `json:"services"`
	Lines      int       `json:"lines"`
	Dropped    int       `json:"dropped"`
}

// ServiceSummary is the per-service outcome stored with a successful run
type ServiceSummary struct {
	RunID      string `json:"run_id"`
	ServiceKey string `json:"service_key"`
	UpTime     string `json:"uptime"`
	Status     string `json:"status"`
	Days       int    `json:"days"`
}

// LogEntry represents a system log entry
type LogEntry struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Service   string `json:"service,omitempty"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
}

// LogStats counts system log entries by level
type LogStats struct {
	TotalLogs  int `json:"total_logs"`
	ErrorCount int `json:"error_count"`
	WarnCount  int `json:"warn_count"`
	InfoCount  int `json:"info_count"`
	DebugCount int `json:"debug_count"`
}
