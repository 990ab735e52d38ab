package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/ragops/banditd/pkg/models"
)

// SQLiteStore is a SQLite-based implementation of the run store
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Connection parameters for concurrent access:
	// - _journal_mode=WAL: Write-Ahead Logging for better concurrency
	// - _busy_timeout=10000: wait up to 10 seconds when the database is locked
	// - _synchronous=NORMAL: balance between safety and performance
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to avoid SQLITE_BUSY under concurrent cycles
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		total_units INTEGER NOT NULL,
		completed_units INTEGER NOT NULL DEFAULT 0,
		cold_start BOOLEAN NOT NULL DEFAULT 0,
		error TEXT,
		created_at DATETIME NOT NULL,
		started_at DATETIME,
		completed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateRun inserts a new run
func (s *SQLiteStore) CreateRun(run *models.Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, status, total_units, completed_units, cold_start, error, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Status, run.TotalUnits, run.CompletedUnits, run.ColdStart, run.Error,
		run.CreatedAt, run.StartedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(id string) (*models.Run, error) {
	run, err := s.scanRun(s.db.QueryRow(`
		SELECT id, status, total_units, completed_units, cold_start, error, created_at, started_at, completed_at
		FROM runs WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	return run, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLiteStore) scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var errorMsg sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&run.ID, &run.Status, &run.TotalUnits, &run.CompletedUnits,
		&run.ColdStart, &errorMsg, &run.CreatedAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	run.Error = errorMsg.String
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return &run, nil
}

func (s *SQLiteStore) queryRuns(query string, args ...interface{}) []*models.Run {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, scanErr := s.scanRun(rows)
		if scanErr != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs
}

// GetAllRuns returns all runs, newest first
func (s *SQLiteStore) GetAllRuns() []*models.Run {
	return s.queryRuns(`
		SELECT id, status, total_units, completed_units, cold_start, error, created_at, started_at, completed_at
		FROM runs ORDER BY created_at DESC
	`)
}

// GetRunsByStatus returns runs matching a status, newest first
func (s *SQLiteStore) GetRunsByStatus(status models.RunStatus) []*models.Run {
	return s.queryRuns(`
		SELECT id, status, total_units, completed_units, cold_start, error, created_at, started_at, completed_at
		FROM runs WHERE status = ? ORDER BY created_at DESC
	`, status)
}

// UpdateRunStatus updates the status of a run, validating the transition
func (s *SQLiteStore) UpdateRunStatus(id string, status models.RunStatus, errorMsg string) error {
	current, err := s.GetRun(id)
	if err != nil {
		return err
	}
	if err := models.ValidateRunTransition(current.Status, status); err != nil {
		return err
	}

	if status == models.RunStatusRunning && current.StartedAt == nil {
		_, err = s.db.Exec(`UPDATE runs SET status = ?, started_at = ? WHERE id = ?`,
			status, time.Now(), id)
	} else if errorMsg != "" {
		_, err = s.db.Exec(`UPDATE runs SET status = ?, error = ? WHERE id = ?`,
			status, errorMsg, id)
	} else {
		_, err = s.db.Exec(`UPDATE runs SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return nil
}

// UpdateRunProgress updates the completed unit count for a run
func (s *SQLiteStore) UpdateRunProgress(id string, completedUnits int) error {
	result, err := s.db.Exec(`UPDATE runs SET completed_units = ? WHERE id = ?`, completedUnits, id)
	if err != nil {
		return fmt.Errorf("failed to update run progress: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// CompleteRun moves a run to a terminal state and stamps completion time
func (s *SQLiteStore) CompleteRun(id string, status models.RunStatus, errorMsg string) error {
	current, err := s.GetRun(id)
	if err != nil {
		return err
	}
	if !models.IsTerminalRunState(status) {
		return fmt.Errorf("CompleteRun requires a terminal status, got %s", status)
	}
	if err := models.ValidateRunTransition(current.Status, status); err != nil {
		return err
	}

	_, err = s.db.Exec(`UPDATE runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		status, errorMsg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// DeleteRun removes a run
func (s *SQLiteStore) DeleteRun(id string) error {
	result, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRunMetrics returns aggregated run statistics without loading all rows
func (s *SQLiteStore) GetRunMetrics() (*RunMetrics, error) {
	metrics := &RunMetrics{
		RunsByStatus: make(map[models.RunStatus]int),
	}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query run counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.RunStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		metrics.RunsByStatus[status] = count
		metrics.TotalRuns += count
	}

	err = s.db.QueryRow(`
		SELECT COALESCE(SUM(total_units), 0),
		       COALESCE(SUM(completed_units), 0),
		       COALESCE(SUM(CASE WHEN cold_start THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(CASE WHEN started_at IS NOT NULL AND completed_at IS NOT NULL
		                    THEN (julianday(completed_at) - julianday(started_at)) * 86400.0 END), 0)
		FROM runs
	`).Scan(&metrics.TotalUnits, &metrics.CompletedUnits, &metrics.ColdStartRuns, &metrics.AvgDurationSec)
	if err != nil {
		return nil, fmt.Errorf("failed to query run aggregates: %w", err)
	}

	return metrics, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database is reachable
func (s *SQLiteStore) HealthCheck() error {
	return s.db.Ping()
}
