package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/ragops/banditd/pkg/models"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(config Config) (*PostgresStore, error) {
	dsn := config.DSN
	if dsn == "" {
		return nil, fmt.Errorf("PostgreSQL DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(25)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates tables if they don't exist
func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		total_units INTEGER NOT NULL,
		completed_units INTEGER NOT NULL DEFAULT 0,
		cold_start BOOLEAN NOT NULL DEFAULT FALSE,
		error TEXT,
		created_at TIMESTAMP NOT NULL,
		started_at TIMESTAMP,
		completed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateRun inserts a new run
func (s *PostgresStore) CreateRun(run *models.Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, status, total_units, completed_units, cold_start, error, created_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, run.ID, run.Status, run.TotalUnits, run.CompletedUnits, run.ColdStart, run.Error,
		run.CreatedAt, run.StartedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (s *PostgresStore) GetRun(id string) (*models.Run, error) {
	run, err := s.scanRun(s.db.QueryRow(`
		SELECT id, status, total_units, completed_units, cold_start, error, created_at, started_at, completed_at
		FROM runs WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	return run, err
}

func (s *PostgresStore) scanRun(row rowScanner) (*models.Run, error) {
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

func (s *PostgresStore) queryRuns(query string, args ...interface{}) []*models.Run {
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
func (s *PostgresStore) GetAllRuns() []*models.Run {
	return s.queryRuns(`
		SELECT id, status, total_units, completed_units, cold_start, error, created_at, started_at, completed_at
		FROM runs ORDER BY created_at DESC
	`)
}

// GetRunsByStatus returns runs matching a status, newest first
func (s *PostgresStore) GetRunsByStatus(status models.RunStatus) []*models.Run {
	return s.queryRuns(`
		SELECT id, status, total_units, completed_units, cold_start, error, created_at, started_at, completed_at
		FROM runs WHERE status = $1 ORDER BY created_at DESC
	`, status)
}

// UpdateRunStatus updates the status of a run, validating the transition
func (s *PostgresStore) UpdateRunStatus(id string, status models.RunStatus, errorMsg string) error {
	current, err := s.GetRun(id)
	if err != nil {
		return err
	}
	if err := models.ValidateRunTransition(current.Status, status); err != nil {
		return err
	}

	if status == models.RunStatusRunning && current.StartedAt == nil {
		_, err = s.db.Exec(`UPDATE runs SET status = $1, started_at = $2 WHERE id = $3`,
			status, time.Now(), id)
	} else if errorMsg != "" {
		_, err = s.db.Exec(`UPDATE runs SET status = $1, error = $2 WHERE id = $3`,
			status, errorMsg, id)
	} else {
		_, err = s.db.Exec(`UPDATE runs SET status = $1 WHERE id = $2`, status, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return nil
}

// UpdateRunProgress updates the completed unit count for a run
func (s *PostgresStore) UpdateRunProgress(id string, completedUnits int) error {
	result, err := s.db.Exec(`UPDATE runs SET completed_units = $1 WHERE id = $2`, completedUnits, id)
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
func (s *PostgresStore) CompleteRun(id string, status models.RunStatus, errorMsg string) error {
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

	_, err = s.db.Exec(`UPDATE runs SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
		status, errorMsg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// DeleteRun removes a run
func (s *PostgresStore) DeleteRun(id string) error {
	result, err := s.db.Exec(`DELETE FROM runs WHERE id = $1`, id)
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
func (s *PostgresStore) GetRunMetrics() (*RunMetrics, error) {
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
		                    THEN EXTRACT(EPOCH FROM completed_at - started_at) END), 0)
		FROM runs
	`).Scan(&metrics.TotalUnits, &metrics.CompletedUnits, &metrics.ColdStartRuns, &metrics.AvgDurationSec)
	if err != nil {
		return nil, fmt.Errorf("failed to query run aggregates: %w", err)
	}

	return metrics, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database is reachable
func (s *PostgresStore) HealthCheck() error {
	return s.db.Ping()
}
