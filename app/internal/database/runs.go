package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"statuspage/app/internal/models"
)

// InsertRun stores a refresh run and its per-service summaries in one
// transaction. An empty run ID is filled with a new UUID.
func InsertRun(run *models.RefreshRun, services []models.ServiceSummary) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	okInt := 0
	if run.OK {
		okInt = 1
	}

	tx, err := DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT INTO refresh_runs (id, source, started_at, duration_ms, ok, error, services, lines, dropped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.StartedAt.UTC().Format(time.RFC3339Nano), run.DurationMS,
		okInt, run.Error, run.Services, run.Lines, run.Dropped)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, s := range services {
		_, err = tx.Exec(`INSERT INTO run_services (run_id, service_key, uptime, status, days)
			VALUES (?, ?, ?, ?, ?)`,
			run.ID, s.ServiceKey, s.UpTime, s.Status, s.Days)
		if err != nil {
			return fmt.Errorf("insert run service %s: %w", s.ServiceKey, err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, source, started_at, duration_ms, ok, COALESCE(error, ''), services, lines, dropped`

func scanRun(row interface{ Scan(...any) error }) (models.RefreshRun, error) {
	var r models.RefreshRun
	var startedAt string
	var okInt int
	if err := row.Scan(&r.ID, &r.Source, &startedAt, &r.DurationMS, &okInt, &r.Error, &r.Services, &r.Lines, &r.Dropped); err != nil {
		return r, err
	}
	r.OK = okInt != 0
	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		r.StartedAt = t
	}
	return r, nil
}

// GetRuns lists runs newest first, optionally filtered by source
func GetRuns(limit, offset int, source string) ([]models.RefreshRun, error) {
	query := `SELECT ` + runColumns + ` FROM refresh_runs WHERE 1=1`
	args := []interface{}{}
	if source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}
	query += " ORDER BY started_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []models.RefreshRun{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LastSuccessfulRun returns the newest successful run for source, or nil if
// there is none
func LastSuccessfulRun(source string) (*models.RefreshRun, error) {
	row := DB.QueryRow(`SELECT `+runColumns+` FROM refresh_runs
		WHERE source = ? AND ok = 1 ORDER BY started_at DESC LIMIT 1`, source)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRunServices returns the service summaries stored with a run, by key
func GetRunServices(runID string) ([]models.ServiceSummary, error) {
	rows, err := DB.Query(`SELECT run_id, service_key, uptime, status, days
		FROM run_services WHERE run_id = ? ORDER BY service_key ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ServiceSummary{}
	for rows.Next() {
		var s models.ServiceSummary
		if err := rows.Scan(&s.RunID, &s.ServiceKey, &s.UpTime, &s.Status, &s.Days); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneRuns keeps the newest keepCount runs and drops the rest along with
// their service summaries
func PruneRuns(keepCount int) error {
	_, err := DB.Exec(`DELETE FROM refresh_runs WHERE id NOT IN (
		SELECT id FROM refresh_runs ORDER BY started_at DESC LIMIT ?
	)`, keepCount)
	if err != nil {
		return err
	}
	_, err = DB.Exec(`DELETE FROM run_services WHERE run_id NOT IN (SELECT id FROM refresh_runs)`)
	return err
}
