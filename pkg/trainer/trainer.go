package trainer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ragops/banditd/pkg/bandit"
	"github.com/ragops/banditd/pkg/logging"
	"github.com/ragops/banditd/pkg/models"
	"github.com/ragops/banditd/pkg/retry"
	"github.com/ragops/banditd/pkg/store"
)

var (
	ErrCycleActive = errors.New("a training cycle is already active")
	ErrNoCycle     = errors.New("no training cycle is active")
)

// UnitFunc processes one unit of a training cycle. The actual
// weight-update work lives in the backend; the trainer only sequences it.
type UnitFunc func(ctx context.Context, unit int) error

// MetricsRecorder is an interface for recording unit metrics
type MetricsRecorder interface {
	RecordUnit(result string, duration time.Duration)
}

// Trainer runs bandit-weight training cycles, driving the shared status
// tracker and recording each run in the store. One cycle at a time.
type Trainer struct {
	tracker  *bandit.Tracker
	store    store.Store
	logger   *logging.Logger
	unitFn   UnitFunc
	retryCfg retry.Config
	metrics  MetricsRecorder

	mu       sync.Mutex
	cancel   context.CancelFunc
	activeID string
	wg       sync.WaitGroup
}

// New creates a trainer
func New(tracker *bandit.Tracker, s store.Store, logger *logging.Logger, unitFn UnitFunc) *Trainer {
	return &Trainer{
		tracker:  tracker,
		store:    s,
		logger:   logger,
		unitFn:   unitFn,
		retryCfg: retry.DefaultConfig(),
	}
}

// SetRetryConfig overrides the per-unit retry configuration
func (t *Trainer) SetRetryConfig(cfg retry.Config) {
	t.retryCfg = cfg
}

// SetMetricsRecorder sets the metrics recorder for unit outcomes
func (t *Trainer) SetMetricsRecorder(recorder MetricsRecorder) {
	t.metrics = recorder
}

// Start begins a new training cycle in the background.
// Returns ErrCycleActive if one is already running.
func (t *Trainer) Start(totalUnits int) (*models.Run, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.activeID != "" {
		return nil, ErrCycleActive
	}
	if totalUnits < 0 {
		totalUnits = 0
	}

	run := &models.Run{
		ID:         uuid.New().String(),
		Status:     models.RunStatusQueued,
		TotalUnits: totalUnits,
		ColdStart:  t.tracker.Status().ColdStart,
		CreatedAt:  time.Now(),
	}
	if err := t.store.CreateRun(run); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.activeID = run.ID

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.runCycle(ctx, run)

		t.mu.Lock()
		t.activeID = ""
		t.cancel = nil
		t.mu.Unlock()
	}()

	return run, nil
}

// Cancel stops the active cycle. Returns ErrNoCycle if nothing is running.
func (t *Trainer) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel == nil {
		return ErrNoCycle
	}
	t.cancel()
	return nil
}

// ActiveRunID returns the ID of the running cycle, or "" when idle
func (t *Trainer) ActiveRunID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeID
}

// Wait blocks until the current cycle (if any) finishes. Used by
// shutdown and tests.
func (t *Trainer) Wait() {
	t.wg.Wait()
}

func (t *Trainer) runCycle(ctx context.Context, run *models.Run) {
	log := t.logger.WithField("run_id", run.ID)
	log.Info("Training cycle started", map[string]interface{}{
		"total_units": run.TotalUnits,
		"cold_start":  run.ColdStart,
	})

	if err := t.store.UpdateRunStatus(run.ID, models.RunStatusRunning, ""); err != nil {
		log.Error("Failed to mark run as running", map[string]interface{}{"error": err.Error()})
	}

	t.tracker.MarkStarted()
	t.tracker.MarkTotal(run.TotalUnits)

	for unit := 0; unit < run.TotalUnits; unit++ {
		select {
		case <-ctx.Done():
			t.finishCanceled(run, log)
			return
		default:
		}

		unitStart := time.Now()
		err := retry.Do(ctx, t.retryCfg, func() error {
			return t.unitFn(ctx, unit)
		})
		if t.metrics != nil {
			result := "ok"
			if err != nil {
				result = "error"
			}
			t.metrics.RecordUnit(result, time.Since(unitStart))
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				t.finishCanceled(run, log)
				return
			}
			t.finishFailed(run, log, err)
			return
		}

		t.tracker.IncrementCompleted()
		if err := t.store.UpdateRunProgress(run.ID, t.tracker.Status().Completed); err != nil {
			log.Warn("Failed to persist run progress", map[string]interface{}{"error": err.Error()})
		}
	}

	// Explicit mark covers the zero-unit cycle, where the threshold never fires
	t.tracker.MarkDone()
	t.tracker.MarkError("")
	if err := t.store.CompleteRun(run.ID, models.RunStatusCompleted, ""); err != nil {
		log.Error("Failed to complete run", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Training cycle completed", map[string]interface{}{
		"completed": t.tracker.Status().Completed,
	})
}

func (t *Trainer) finishCanceled(run *models.Run, log *logging.Logger) {
	t.tracker.MarkDone()
	if err := t.store.CompleteRun(run.ID, models.RunStatusCanceled, ""); err != nil {
		log.Error("Failed to mark run canceled", map[string]interface{}{"error": err.Error()})
	}
	log.Info("Training cycle canceled")
}

func (t *Trainer) finishFailed(run *models.Run, log *logging.Logger, unitErr error) {
	t.tracker.MarkError(unitErr.Error())
	t.tracker.MarkDone()
	if err := t.store.CompleteRun(run.ID, models.RunStatusFailed, unitErr.Error()); err != nil {
		log.Error("Failed to mark run failed", map[string]interface{}{"error": err.Error()})
	}
	log.Error("Training cycle failed", map[string]interface{}{
		"error": unitErr.Error(),
	})
}
