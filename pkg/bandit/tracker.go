package bandit

import "sync"

// Snapshot is a point-in-time copy of the tracker state.
// Callers may mutate it freely without affecting the tracker.
type Snapshot struct {
	Enabled   bool    `json:"enabled"`
	Started   bool    `json:"started"`
	Done      bool    `json:"done"`
	LastError *string `json:"last_error,omitempty"`
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	ColdStart bool    `json:"cold_start"`
}

// Tracker records the status of the current bandit training cycle.
// A single instance is owned by the daemon and shared by reference;
// every operation takes the mutex, so concurrent callers are safe.
type Tracker struct {
	mu        sync.Mutex
	enabled   bool
	started   bool
	done      bool
	lastError string
	hasError  bool
	total     int
	completed int
	coldStart bool
}

// NewTracker creates a tracker with all fields at their zero defaults.
func NewTracker() *Tracker {
	return &Tracker{}
}

// SetEnabled turns the strategy-selection mechanism on or off.
func (t *Tracker) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// MarkStarted begins a new cycle. Progress and the done flag are reset;
// total, enabled, last error and cold start carry over from the previous cycle.
func (t *Tracker) MarkStarted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = true
	t.done = false
	t.completed = 0
}

// MarkDone marks the current cycle finished. Legal in any state.
func (t *Tracker) MarkDone() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
}

// MarkError records the most recent error message. An empty message
// clears the error instead of storing an empty string.
func (t *Tracker) MarkError(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if message == "" {
		t.lastError = ""
		t.hasError = false
		return
	}
	t.lastError = message
	t.hasError = true
}

// MarkTotal sets the expected unit count for the cycle, clamped to >= 0.
func (t *Tracker) MarkTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if total < 0 {
		total = 0
	}
	t.total = total
}

// IncrementCompleted adds one completed unit. When a positive total is
// set and the counter reaches it, the cycle is marked done. Increments
// after that keep counting; done stays true.
func (t *Tracker) IncrementCompleted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed++
	if t.total > 0 && t.completed >= t.total {
		t.done = true
	}
}

// SetColdStart flags whether the cycle began without learned weights.
func (t *Tracker) SetColdStart(coldStart bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.coldStart = coldStart
}

// Status returns an independent copy of the current state.
func (t *Tracker) Status() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		Enabled:   t.enabled,
		Started:   t.started,
		Done:      t.done,
		Total:     t.total,
		Completed: t.completed,
		ColdStart: t.coldStart,
	}
	if t.hasError {
		msg := t.lastError
		snap.LastError = &msg
	}
	return snap
}
