package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/ragops/banditd/pkg/logging"
	"github.com/ragops/banditd/pkg/models"
	"github.com/ragops/banditd/pkg/store"
)

// Config defines the retention policy for finished runs.
type Config struct {
	Enabled         bool
	RetentionDays   int
	Interval        time.Duration
	DeleteBatchSize int
	InitialDelay    time.Duration
}

// DefaultConfig returns sensible retention defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		RetentionDays:   30,
		Interval:        24 * time.Hour,
		DeleteBatchSize: 100,
		InitialDelay:    5 * time.Minute,
	}
}

// Stats tracks pruning activity.
type Stats struct {
	LastRunTime     time.Time
	LastRunDuration time.Duration
	TotalDeleted    int64
}

// Manager prunes finished runs past the retention period. Active and
// queued runs are never touched.
type Manager struct {
	config Config
	store  store.Store
	logger *logging.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	stats Stats
}

// NewManager creates a retention manager over the run store.
func NewManager(config Config, s store.Store, logger *logging.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		config: config,
		store:  s,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins periodic pruning.
func (m *Manager) Start() {
	if !m.config.Enabled {
		m.logger.Info("run retention disabled")
		return
	}

	m.logger.Info("run retention started", map[string]interface{}{
		"retention_days": m.config.RetentionDays,
		"interval":       m.config.Interval.String(),
	})

	m.wg.Add(1)
	go m.loop()
}

// Stop cancels the loop and waits for an in-flight prune to finish.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	select {
	case <-m.ctx.Done():
		return
	case <-time.After(m.config.InitialDelay):
		m.prune()
	}

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.prune()
		}
	}
}

func (m *Manager) prune() {
	start := time.Now()
	cutoff := time.Now().Add(-time.Duration(m.config.RetentionDays) * 24 * time.Hour)
	deleted := 0

	for _, status := range []models.RunStatus{
		models.RunStatusCompleted,
		models.RunStatusFailed,
		models.RunStatusCanceled,
	} {
		m.pruneByStatus(status, cutoff, &deleted)
	}

	duration := time.Since(start)

	m.mu.Lock()
	m.stats.LastRunTime = time.Now()
	m.stats.LastRunDuration = duration
	m.stats.TotalDeleted += int64(deleted)
	m.mu.Unlock()

	m.logger.Info("retention pass complete", map[string]interface{}{
		"deleted":  deleted,
		"duration": duration.String(),
	})
}

func (m *Manager) pruneByStatus(status models.RunStatus, cutoff time.Time, deleted *int) {
	runs := m.store.GetRunsByStatus(status)

	for _, run := range runs {
		compareTime := run.CreatedAt
		if run.CompletedAt != nil {
			compareTime = *run.CompletedAt
		}
		if !compareTime.Before(cutoff) {
			continue
		}

		if err := m.store.DeleteRun(run.ID); err != nil {
			m.logger.Error("failed to delete run", map[string]interface{}{
				"run_id": run.ID,
				"error":  err.Error(),
			})
			continue
		}
		*deleted++

		// Pace deletions so a large backlog does not saturate the store.
		if *deleted%m.config.DeleteBatchSize == 0 {
			select {
			case <-m.ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
		}
	}
}

// GetStats returns a copy of the pruning statistics.
func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}
