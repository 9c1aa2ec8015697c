package database

import "statuspage/app/internal/models"

// LogLevel constants
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// LogCategory constants
const (
	LogCategoryRefresh      = "refresh"
	LogCategorySecurity     = "security"
	LogCategorySystem       = "system"
	LogCategoryNotification = "notification"
)

// InsertLog adds a new log entry
func InsertLog(level, category, service, message, details string) error {
	if DB == nil {
		return ErrNotInitialized
	}
	_, err := DB.Exec(`INSERT INTO system_logs (timestamp, level, category, service, message, details)
		VALUES (strftime('%Y-%m-%d %H:%M:%f', 'now'), ?, ?, ?, ?, ?)`,
		level, category, service, message, details)
	return err
}

// GetLogs retrieves logs newest first with optional filtering
func GetLogs(limit int, level, category, service string, offset int) ([]models.LogEntry, error) {
	query := `SELECT id, timestamp, level, category, COALESCE(service, ''), message, COALESCE(details, '')
		FROM system_logs WHERE 1=1`
	args := []interface{}{}

	if level != "" {
		query += " AND level = ?"
		args = append(args, level)
	}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	if service != "" {
		query += " AND service = ?"
		args = append(args, service)
	}

	query += " ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.LogEntry{}
	for rows.Next() {
		var e models.LogEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Level, &e.Category, &e.Service, &e.Message, &e.Details); err != nil {
			return nil, err
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

// GetLogStats returns counts of log entries per level
func GetLogStats() (*models.LogStats, error) {
	var stats models.LogStats
	rows, err := DB.Query(`SELECT level, COUNT(*) FROM system_logs GROUP BY level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, err
		}
		stats.TotalLogs += n
		switch level {
		case LogLevelError:
			stats.ErrorCount = n
		case LogLevelWarn:
			stats.WarnCount = n
		case LogLevelInfo:
			stats.InfoCount = n
		case LogLevelDebug:
			stats.DebugCount = n
		}
	}
	return &stats, rows.Err()
}

// PruneLogs keeps the newest keepCount log entries
func PruneLogs(keepCount int) error {
	_, err := DB.Exec(`DELETE FROM system_logs WHERE id NOT IN (
		SELECT id FROM system_logs ORDER BY timestamp DESC, id DESC LIMIT ?
	)`, keepCount)
	return err
}
