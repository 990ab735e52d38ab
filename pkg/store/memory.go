package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ragops/banditd/pkg/models"
)

var (
	ErrRunNotFound = errors.New("run not found")
)

// MemoryStore is an in-memory implementation of the run store
type MemoryStore struct {
	runs map[string]*models.Run
	mu   sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*models.Run),
	}
}

// CreateRun adds a new run to the store
func (s *MemoryStore) CreateRun(run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

// GetRun retrieves a run by ID
func (s *MemoryStore) GetRun(id string) (*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	cp := *run
	return &cp, nil
}

// GetAllRuns returns all runs, newest first
func (s *MemoryStore) GetAllRuns() []*models.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*models.Run, 0, len(s.runs))
	for _, run := range s.runs {
		cp := *run
		runs = append(runs, &cp)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs
}

// GetRunsByStatus returns runs matching a status, newest first
func (s *MemoryStore) GetRunsByStatus(status models.RunStatus) []*models.Run {
	all := s.GetAllRuns()
	filtered := make([]*models.Run, 0, len(all))
	for _, run := range all {
		if run.Status == status {
			filtered = append(filtered, run)
		}
	}
	return filtered
}

// UpdateRunStatus updates the status of a run, validating the transition
func (s *MemoryStore) UpdateRunStatus(id string, status models.RunStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return ErrRunNotFound
	}

	if err := models.ValidateRunTransition(run.Status, status); err != nil {
		return err
	}

	run.Status = status
	if errorMsg != "" {
		run.Error = errorMsg
	}
	if status == models.RunStatusRunning && run.StartedAt == nil {
		now := time.Now()
		run.StartedAt = &now
	}
	return nil
}

// UpdateRunProgress updates the completed unit count for a run
func (s *MemoryStore) UpdateRunProgress(id string, completedUnits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return ErrRunNotFound
	}

	run.CompletedUnits = completedUnits
	return nil
}

// CompleteRun moves a run to a terminal state and stamps completion time
func (s *MemoryStore) CompleteRun(id string, status models.RunStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return ErrRunNotFound
	}

	if !models.IsTerminalRunState(status) {
		return errors.New("CompleteRun requires a terminal status")
	}
	if err := models.ValidateRunTransition(run.Status, status); err != nil {
		return err
	}

	run.Status = status
	run.Error = errorMsg
	now := time.Now()
	run.CompletedAt = &now
	return nil
}

// DeleteRun removes a run from the store
func (s *MemoryStore) DeleteRun(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return ErrRunNotFound
	}
	delete(s.runs, id)
	return nil
}

// GetRunMetrics returns aggregated run statistics
func (s *MemoryStore) GetRunMetrics() (*RunMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics := &RunMetrics{
		RunsByStatus: make(map[models.RunStatus]int),
	}

	var durationSum float64
	var durationCount int
	for _, run := range s.runs {
		metrics.RunsByStatus[run.Status]++
		metrics.TotalRuns++
		metrics.TotalUnits += run.TotalUnits
		metrics.CompletedUnits += run.CompletedUnits
		if run.ColdStart {
			metrics.ColdStartRuns++
		}
		if run.StartedAt != nil && run.CompletedAt != nil {
			durationSum += run.CompletedAt.Sub(*run.StartedAt).Seconds()
			durationCount++
		}
	}
	if durationCount > 0 {
		metrics.AvgDurationSec = durationSum / float64(durationCount)
	}
	return metrics, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}

// HealthCheck is a no-op for the memory store
func (s *MemoryStore) HealthCheck() error {
	return nil
}
