package store

import (
	"time"

	"github.com/ragops/banditd/pkg/models"
)

// Store defines the interface for training-run persistence
// Memory, SQLite and PostgreSQL all implement this interface
type Store interface {
	// Run operations
	CreateRun(run *models.Run) error
	GetRun(id string) (*models.Run, error)
	GetAllRuns() []*models.Run
	GetRunsByStatus(status models.RunStatus) []*models.Run
	UpdateRunStatus(id string, status models.RunStatus, errorMsg string) error
	UpdateRunProgress(id string, completedUnits int) error
	CompleteRun(id string, status models.RunStatus, errorMsg string) error
	DeleteRun(id string) error

	// Metrics operations (aggregated for the metrics endpoint)
	GetRunMetrics() (*RunMetrics, error)

	// Lifecycle
	Close() error
	HealthCheck() error
}

// RunMetrics contains aggregated run statistics for the metrics endpoint
type RunMetrics struct {
	RunsByStatus   map[models.RunStatus]int
	TotalRuns      int
	ColdStartRuns  int
	AvgDurationSec float64
	TotalUnits     int
	CompletedUnits int
}

// Config holds database configuration
type Config struct {
	Type string // "memory", "sqlite" or "postgres"
	DSN  string // Connection string (postgres) or file path (sqlite)

	// PostgreSQL specific
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// SQLite specific
	Path string
}

// NewStore creates a store based on configuration
func NewStore(config Config) (Store, error) {
	switch config.Type {
	case "postgres", "postgresql":
		return NewPostgresStore(config)
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		path := config.Path
		if path == "" {
			path = config.DSN
		}
		if path == "" {
			return NewMemoryStore(), nil
		}
		return NewSQLiteStore(path)
	default:
		return NewMemoryStore(), nil
	}
}
