package bandit

import (
	"sync"
	"testing"
)

func TestSetEnabled(t *testing.T) {
	tracker := NewTracker()

	tracker.SetEnabled(true)
	if !tracker.Status().Enabled {
		t.Error("SetEnabled(true) should set enabled")
	}

	tracker.SetEnabled(false)
	if tracker.Status().Enabled {
		t.Error("SetEnabled(false) should clear enabled")
	}
}

func TestSetColdStart(t *testing.T) {
	tracker := NewTracker()

	tracker.SetColdStart(true)
	if !tracker.Status().ColdStart {
		t.Error("SetColdStart(true) should set cold_start")
	}

	tracker.SetColdStart(false)
	if tracker.Status().ColdStart {
		t.Error("SetColdStart(false) should clear cold_start")
	}
}

func TestMarkTotal(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		expected int
	}{
		{"Positive total stored as-is", 7, 7},
		{"Negative total clamped to zero", -5, 0},
		{"Zero total stored", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker()
			tracker.MarkTotal(tt.total)
			if got := tracker.Status().Total; got != tt.expected {
				t.Errorf("MarkTotal(%d) stored %d, want %d", tt.total, got, tt.expected)
			}
		})
	}
}

func TestMarkStartedResetsProgress(t *testing.T) {
	tracker := NewTracker()

	// Dirty every field a start should not touch, plus the ones it should reset
	tracker.SetEnabled(true)
	tracker.SetColdStart(true)
	tracker.MarkError("previous failure")
	tracker.MarkTotal(3)
	tracker.IncrementCompleted()
	tracker.MarkDone()

	tracker.MarkStarted()

	snap := tracker.Status()
	if !snap.Started {
		t.Error("MarkStarted should set started")
	}
	if snap.Done {
		t.Error("MarkStarted should reset done")
	}
	if snap.Completed != 0 {
		t.Errorf("MarkStarted should reset completed, got %d", snap.Completed)
	}
	if snap.Total != 3 {
		t.Errorf("MarkStarted should not touch total, got %d", snap.Total)
	}
	if !snap.Enabled {
		t.Error("MarkStarted should not touch enabled")
	}
	if !snap.ColdStart {
		t.Error("MarkStarted should not touch cold_start")
	}
	if snap.LastError == nil || *snap.LastError != "previous failure" {
		t.Error("MarkStarted should not touch last_error")
	}
}

func TestMarkDoneBeforeStartIsLegal(t *testing.T) {
	tracker := NewTracker()
	tracker.MarkDone()

	snap := tracker.Status()
	if !snap.Done {
		t.Error("MarkDone should set done even before MarkStarted")
	}
	if snap.Started {
		t.Error("MarkDone should not set started")
	}
}

func TestIncrementCompletedThreshold(t *testing.T) {
	tracker := NewTracker()
	tracker.MarkStarted()
	tracker.MarkTotal(3)

	tracker.IncrementCompleted()
	tracker.IncrementCompleted()
	if tracker.Status().Done {
		t.Error("done should not be set before completed reaches total")
	}

	tracker.IncrementCompleted()
	snap := tracker.Status()
	if !snap.Done {
		t.Error("done should be set when completed reaches total")
	}
	if snap.Completed != 3 {
		t.Errorf("completed = %d, want 3", snap.Completed)
	}

	// Overshoot keeps counting, done stays set
	tracker.IncrementCompleted()
	snap = tracker.Status()
	if snap.Completed != 4 {
		t.Errorf("completed after overshoot = %d, want 4", snap.Completed)
	}
	if !snap.Done {
		t.Error("done should stay set after overshoot")
	}
}

func TestIncrementCompletedZeroTotal(t *testing.T) {
	tracker := NewTracker()
	tracker.MarkStarted()
	tracker.MarkTotal(0)

	for i := 0; i < 10; i++ {
		tracker.IncrementCompleted()
	}

	snap := tracker.Status()
	if snap.Done {
		t.Error("zero total should never trigger done via the threshold check")
	}
	if snap.Completed != 10 {
		t.Errorf("completed = %d, want 10", snap.Completed)
	}
}

func TestMarkError(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    *string
	}{
		{"Non-empty message stored", "backend unreachable", strPtr("backend unreachable")},
		{"Empty message clears error", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker()
			tracker.MarkError("stale")
			tracker.MarkError(tt.message)

			got := tracker.Status().LastError
			if tt.want == nil {
				if got != nil {
					t.Errorf("last_error = %q, want absent", *got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Errorf("last_error = %v, want %q", got, *tt.want)
			}
		})
	}
}

func TestMarkErrorDoesNotTouchLifecycle(t *testing.T) {
	tracker := NewTracker()
	tracker.MarkError("boom")

	snap := tracker.Status()
	if snap.Started || snap.Done {
		t.Error("MarkError should not touch started or done")
	}
}

func TestStatusCopySemantics(t *testing.T) {
	tracker := NewTracker()
	tracker.MarkError("original")
	tracker.MarkTotal(5)

	snap := tracker.Status()
	snap.Total = 99
	snap.Done = true
	*snap.LastError = "mutated"

	fresh := tracker.Status()
	if fresh.Total != 5 {
		t.Errorf("mutating a snapshot changed total: got %d", fresh.Total)
	}
	if fresh.Done {
		t.Error("mutating a snapshot changed done")
	}
	if fresh.LastError == nil || *fresh.LastError != "original" {
		t.Error("mutating a snapshot's last_error changed tracker state")
	}
}

func TestFullCycleScenario(t *testing.T) {
	tracker := NewTracker()

	tracker.MarkStarted()
	tracker.MarkTotal(2)
	tracker.IncrementCompleted()
	tracker.IncrementCompleted()

	snap := tracker.Status()
	if !snap.Started {
		t.Error("started should be true")
	}
	if !snap.Done {
		t.Error("done should be true")
	}
	if snap.Total != 2 {
		t.Errorf("total = %d, want 2", snap.Total)
	}
	if snap.Completed != 2 {
		t.Errorf("completed = %d, want 2", snap.Completed)
	}
}

// TestConcurrentIncrements verifies the tracker holds up under parallel writers.
func TestConcurrentIncrements(t *testing.T) {
	tracker := NewTracker()
	tracker.MarkStarted()
	tracker.MarkTotal(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.IncrementCompleted()
		}()
	}
	wg.Wait()

	snap := tracker.Status()
	if snap.Completed != 100 {
		t.Errorf("completed = %d, want 100", snap.Completed)
	}
	if !snap.Done {
		t.Error("done should be set after reaching total")
	}
}

func strPtr(s string) *string {
	return &s
}
