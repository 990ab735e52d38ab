package cleanup

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ragops/banditd/pkg/logging"
	"github.com/ragops/banditd/pkg/models"
	"github.com/ragops/banditd/pkg/store"
)

func seedRun(t *testing.T, s store.Store, status models.RunStatus, age time.Duration) string {
	t.Helper()

	run := &models.Run{
		ID:         uuid.New().String(),
		Status:     models.RunStatusQueued,
		TotalUnits: 5,
		CreatedAt:  time.Now().Add(-age),
	}
	if err := s.CreateRun(run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	if status == models.RunStatusQueued {
		return run.ID
	}
	if err := s.UpdateRunStatus(run.ID, models.RunStatusRunning, ""); err != nil {
		t.Fatalf("UpdateRunStatus: %v", err)
	}
	if status == models.RunStatusRunning {
		return run.ID
	}
	if err := s.CompleteRun(run.ID, status, ""); err != nil {
		t.Fatalf("CompleteRun: %v", err)
	}
	return run.ID
}

func TestPruneDeletesOnlyOldFinishedRuns(t *testing.T) {
	s := store.NewMemoryStore()
	logger := logging.NewLogger(logging.FATAL, false)

	oldDone := seedRun(t, s, models.RunStatusCompleted, 0)
	freshDone := seedRun(t, s, models.RunStatusCompleted, 0)
	active := seedRun(t, s, models.RunStatusRunning, 60*24*time.Hour)

	// Backdate one finished run past the retention window. CompleteRun
	// stamps CompletedAt with the current time, so rewrite it directly.
	run, err := s.GetRun(oldDone)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	past := time.Now().Add(-60 * 24 * time.Hour)
	run.CompletedAt = &past
	if err := s.DeleteRun(oldDone); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	run.CreatedAt = past
	if err := s.CreateRun(run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	cfg := DefaultConfig()
	cfg.RetentionDays = 30
	m := NewManager(cfg, s, logger)

	m.prune()

	if _, err := s.GetRun(oldDone); err == nil {
		t.Error("expected old completed run to be pruned")
	}
	if _, err := s.GetRun(freshDone); err != nil {
		t.Errorf("fresh completed run should survive: %v", err)
	}
	if _, err := s.GetRun(active); err != nil {
		t.Errorf("running run should survive regardless of age: %v", err)
	}

	stats := m.GetStats()
	if stats.TotalDeleted != 1 {
		t.Errorf("TotalDeleted = %d, want 1", stats.TotalDeleted)
	}
}

func TestPruneDisabled(t *testing.T) {
	s := store.NewMemoryStore()
	logger := logging.NewLogger(logging.FATAL, false)

	cfg := DefaultConfig()
	cfg.Enabled = false
	m := NewManager(cfg, s, logger)

	m.Start()
	m.Stop()
}

func TestStartStop(t *testing.T) {
	s := store.NewMemoryStore()
	logger := logging.NewLogger(logging.FATAL, false)

	cfg := DefaultConfig()
	cfg.Interval = 10 * time.Millisecond
	cfg.InitialDelay = 0
	m := NewManager(cfg, s, logger)

	m.Start()
	time.Sleep(30 * time.Millisecond)
	m.Stop()
}
