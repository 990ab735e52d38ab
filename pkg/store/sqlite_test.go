package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ragops/banditd/pkg/models"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRunLifecycle(t *testing.T) {
	s := newSQLiteTestStore(t)

	run := &models.Run{
		ID:         uuid.New().String(),
		Status:     models.RunStatusQueued,
		TotalUnits: 5,
		ColdStart:  true,
		CreatedAt:  time.Now(),
	}
	if err := s.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	if err := s.UpdateRunStatus(run.ID, models.RunStatusRunning, ""); err != nil {
		t.Fatalf("UpdateRunStatus failed: %v", err)
	}
	got, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != models.RunStatusRunning {
		t.Errorf("status = %s, want running", got.Status)
	}
	if got.StartedAt == nil {
		t.Error("transition to running should stamp started_at")
	}
	if !got.ColdStart {
		t.Error("cold_start flag lost on round trip")
	}

	if err := s.UpdateRunProgress(run.ID, 5); err != nil {
		t.Fatalf("UpdateRunProgress failed: %v", err)
	}
	if err := s.CompleteRun(run.ID, models.RunStatusCompleted, ""); err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}

	got, _ = s.GetRun(run.ID)
	if got.CompletedAt == nil {
		t.Error("CompleteRun should stamp completed_at")
	}
	if got.CompletedUnits != 5 {
		t.Errorf("completed_units = %d, want 5", got.CompletedUnits)
	}
}

func TestSQLiteRunNotFound(t *testing.T) {
	s := newSQLiteTestStore(t)

	if _, err := s.GetRun("missing"); err != ErrRunNotFound {
		t.Errorf("GetRun error = %v, want ErrRunNotFound", err)
	}
	if err := s.UpdateRunProgress("missing", 1); err != ErrRunNotFound {
		t.Errorf("UpdateRunProgress error = %v, want ErrRunNotFound", err)
	}
}

func TestSQLiteFailedRunKeepsError(t *testing.T) {
	s := newSQLiteTestStore(t)

	run := &models.Run{
		ID:         uuid.New().String(),
		Status:     models.RunStatusQueued,
		TotalUnits: 3,
		CreatedAt:  time.Now(),
	}
	if err := s.CreateRun(run); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateRunStatus(run.ID, models.RunStatusRunning, ""); err != nil {
		t.Fatal(err)
	}
	if err := s.CompleteRun(run.ID, models.RunStatusFailed, "weight update rejected"); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetRun(run.ID)
	if got.Error != "weight update rejected" {
		t.Errorf("error = %q, want %q", got.Error, "weight update rejected")
	}
}

// TestSQLiteConcurrentAccess tests that concurrent database access doesn't cause locks
func TestSQLiteConcurrentAccess(t *testing.T) {
	s := newSQLiteTestStore(t)

	numRuns := 20
	var wg sync.WaitGroup
	errors := make(chan error, numRuns)

	for i := 0; i < numRuns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			run := &models.Run{
				ID:         uuid.New().String(),
				Status:     models.RunStatusQueued,
				TotalUnits: i,
				CreatedAt:  time.Now(),
			}
			if err := s.CreateRun(run); err != nil {
				errors <- fmt.Errorf("run %d: %w", i, err)
			}
		}(i)
	}
	wg.Wait()
	close(errors)

	for err := range errors {
		t.Error(err)
	}

	if got := len(s.GetAllRuns()); got != numRuns {
		t.Errorf("stored runs = %d, want %d", got, numRuns)
	}
}

func TestSQLiteRunMetrics(t *testing.T) {
	s := newSQLiteTestStore(t)

	for i := 0; i < 3; i++ {
		run := &models.Run{
			ID:         uuid.New().String(),
			Status:     models.RunStatusQueued,
			TotalUnits: 4,
			ColdStart:  i == 0,
			CreatedAt:  time.Now(),
		}
		if err := s.CreateRun(run); err != nil {
			t.Fatal(err)
		}
	}

	metrics, err := s.GetRunMetrics()
	if err != nil {
		t.Fatalf("GetRunMetrics failed: %v", err)
	}
	if metrics.TotalRuns != 3 {
		t.Errorf("total runs = %d, want 3", metrics.TotalRuns)
	}
	if metrics.TotalUnits != 12 {
		t.Errorf("total units = %d, want 12", metrics.TotalUnits)
	}
	if metrics.ColdStartRuns != 1 {
		t.Errorf("cold start runs = %d, want 1", metrics.ColdStartRuns)
	}
}
