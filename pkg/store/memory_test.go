package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ragops/banditd/pkg/models"
)

func newTestRun() *models.Run {
	return &models.Run{
		ID:         uuid.New().String(),
		Status:     models.RunStatusQueued,
		TotalUnits: 10,
		ColdStart:  true,
		CreatedAt:  time.Now(),
	}
}

func TestMemoryStoreRunLifecycle(t *testing.T) {
	s := NewMemoryStore()
	run := newTestRun()

	if err := s.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != models.RunStatusQueued {
		t.Errorf("status = %s, want queued", got.Status)
	}

	if err := s.UpdateRunStatus(run.ID, models.RunStatusRunning, ""); err != nil {
		t.Fatalf("UpdateRunStatus failed: %v", err)
	}
	got, _ = s.GetRun(run.ID)
	if got.StartedAt == nil {
		t.Error("transition to running should stamp started_at")
	}

	if err := s.UpdateRunProgress(run.ID, 7); err != nil {
		t.Fatalf("UpdateRunProgress failed: %v", err)
	}
	got, _ = s.GetRun(run.ID)
	if got.CompletedUnits != 7 {
		t.Errorf("completed_units = %d, want 7", got.CompletedUnits)
	}

	if err := s.CompleteRun(run.ID, models.RunStatusCompleted, ""); err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}
	got, _ = s.GetRun(run.ID)
	if got.CompletedAt == nil {
		t.Error("CompleteRun should stamp completed_at")
	}
}

func TestMemoryStoreInvalidTransition(t *testing.T) {
	s := NewMemoryStore()
	run := newTestRun()
	if err := s.CreateRun(run); err != nil {
		t.Fatal(err)
	}

	// queued → completed skips running
	if err := s.UpdateRunStatus(run.ID, models.RunStatusCompleted, ""); err == nil {
		t.Error("queued → completed should be rejected")
	}
}

func TestMemoryStoreCompleteRunRequiresTerminal(t *testing.T) {
	s := NewMemoryStore()
	run := newTestRun()
	if err := s.CreateRun(run); err != nil {
		t.Fatal(err)
	}

	if err := s.CompleteRun(run.ID, models.RunStatusRunning, ""); err == nil {
		t.Error("CompleteRun with a non-terminal status should be rejected")
	}
}

func TestMemoryStoreRunNotFound(t *testing.T) {
	s := NewMemoryStore()

	if _, err := s.GetRun("missing"); err != ErrRunNotFound {
		t.Errorf("GetRun error = %v, want ErrRunNotFound", err)
	}
	if err := s.UpdateRunProgress("missing", 1); err != ErrRunNotFound {
		t.Errorf("UpdateRunProgress error = %v, want ErrRunNotFound", err)
	}
	if err := s.DeleteRun("missing"); err != ErrRunNotFound {
		t.Errorf("DeleteRun error = %v, want ErrRunNotFound", err)
	}
}

func TestMemoryStoreCopySemantics(t *testing.T) {
	s := NewMemoryStore()
	run := newTestRun()
	if err := s.CreateRun(run); err != nil {
		t.Fatal(err)
	}

	// Mutating the returned run must not leak into the store
	got, _ := s.GetRun(run.ID)
	got.TotalUnits = 999

	fresh, _ := s.GetRun(run.ID)
	if fresh.TotalUnits != 10 {
		t.Errorf("store state mutated via returned run: total_units = %d", fresh.TotalUnits)
	}
}

func TestMemoryStoreGetRunsByStatus(t *testing.T) {
	s := NewMemoryStore()

	for i := 0; i < 3; i++ {
		run := newTestRun()
		if err := s.CreateRun(run); err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			if err := s.UpdateRunStatus(run.ID, models.RunStatusRunning, ""); err != nil {
				t.Fatal(err)
			}
		}
	}

	if got := len(s.GetRunsByStatus(models.RunStatusQueued)); got != 2 {
		t.Errorf("queued runs = %d, want 2", got)
	}
	if got := len(s.GetRunsByStatus(models.RunStatusRunning)); got != 1 {
		t.Errorf("running runs = %d, want 1", got)
	}
	if got := len(s.GetAllRuns()); got != 3 {
		t.Errorf("all runs = %d, want 3", got)
	}
}

func TestMemoryStoreRunMetrics(t *testing.T) {
	s := NewMemoryStore()

	a := newTestRun()
	a.ColdStart = true
	if err := s.CreateRun(a); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateRunStatus(a.ID, models.RunStatusRunning, ""); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateRunProgress(a.ID, 10); err != nil {
		t.Fatal(err)
	}
	if err := s.CompleteRun(a.ID, models.RunStatusCompleted, ""); err != nil {
		t.Fatal(err)
	}

	b := newTestRun()
	b.ColdStart = false
	if err := s.CreateRun(b); err != nil {
		t.Fatal(err)
	}

	metrics, err := s.GetRunMetrics()
	if err != nil {
		t.Fatalf("GetRunMetrics failed: %v", err)
	}
	if metrics.TotalRuns != 2 {
		t.Errorf("total runs = %d, want 2", metrics.TotalRuns)
	}
	if metrics.ColdStartRuns != 1 {
		t.Errorf("cold start runs = %d, want 1", metrics.ColdStartRuns)
	}
	if metrics.RunsByStatus[models.RunStatusCompleted] != 1 {
		t.Errorf("completed runs = %d, want 1", metrics.RunsByStatus[models.RunStatusCompleted])
	}
	if metrics.CompletedUnits != 10 {
		t.Errorf("completed units = %d, want 10", metrics.CompletedUnits)
	}
}
