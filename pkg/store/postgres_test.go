package store

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ragops/banditd/pkg/models"
)

// TestPostgresIntegration tests the PostgreSQL store with a real database
// Set DATABASE_DSN environment variable to run: export DATABASE_DSN="postgresql://..."
func TestPostgresIntegration(t *testing.T) {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		t.Skip("Skipping PostgreSQL integration test: DATABASE_DSN not set")
	}

	s, err := NewStore(Config{
		Type: "postgres",
		DSN:  dsn,
	})
	if err != nil {
		t.Fatalf("Failed to create PostgreSQL store: %v", err)
	}
	defer s.Close()

	if err := s.HealthCheck(); err != nil {
		t.Fatalf("Health check failed: %v", err)
	}

	t.Run("RunLifecycle", func(t *testing.T) {
		run := &models.Run{
			ID:         uuid.New().String(),
			Status:     models.RunStatusQueued,
			TotalUnits: 8,
			ColdStart:  true,
			CreatedAt:  time.Now(),
		}
		if err := s.CreateRun(run); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
		defer s.DeleteRun(run.ID)

		if err := s.UpdateRunStatus(run.ID, models.RunStatusRunning, ""); err != nil {
			t.Fatalf("UpdateRunStatus failed: %v", err)
		}
		if err := s.UpdateRunProgress(run.ID, 8); err != nil {
			t.Fatalf("UpdateRunProgress failed: %v", err)
		}
		if err := s.CompleteRun(run.ID, models.RunStatusCompleted, ""); err != nil {
			t.Fatalf("CompleteRun failed: %v", err)
		}

		got, err := s.GetRun(run.ID)
		if err != nil {
			t.Fatalf("GetRun failed: %v", err)
		}
		if got.Status != models.RunStatusCompleted {
			t.Errorf("status = %s, want completed", got.Status)
		}
		if got.CompletedUnits != 8 {
			t.Errorf("completed_units = %d, want 8", got.CompletedUnits)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		if _, err := s.GetRunMetrics(); err != nil {
			t.Fatalf("GetRunMetrics failed: %v", err)
		}
	})
}
