package models

import (
	"fmt"
	"time"
)

// RunStatus represents the status of a training run
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"    // Run created, cycle not yet started
	RunStatusRunning   RunStatus = "running"   // Cycle actively processing units
	RunStatusCompleted RunStatus = "completed" // Cycle finished successfully
	RunStatusFailed    RunStatus = "failed"    // Cycle aborted with an error
	RunStatusCanceled  RunStatus = "canceled"  // Cycle canceled by the operator
)

// Run represents one bandit-weight training cycle
type Run struct {
	ID             string     `json:"id"`
	Status         RunStatus  `json:"status"`
	TotalUnits     int        `json:"total_units"`
	CompletedUnits int        `json:"completed_units"`
	ColdStart      bool       `json:"cold_start"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// validRunTransitions maps from-state to allowed to-states
var validRunTransitions = map[RunStatus]map[RunStatus]bool{
	RunStatusQueued: {
		RunStatusRunning:  true, // Queued → Running (cycle starts)
		RunStatusCanceled: true, // Queued → Canceled (operator cancels)
		RunStatusFailed:   true, // Queued → Failed (cycle could not start)
	},
	RunStatusRunning: {
		RunStatusCompleted: true, // Running → Completed (all units processed)
		RunStatusFailed:    true, // Running → Failed (unit error)
		RunStatusCanceled:  true, // Running → Canceled (operator cancels)
	},
	// Terminal states (no transitions allowed)
	RunStatusCompleted: {},
	RunStatusFailed:    {},
	RunStatusCanceled:  {},
}

// ValidateRunTransition checks if a run state transition is valid
func ValidateRunTransition(from, to RunStatus) error {
	allowed, exists := validRunTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	return nil
}

// IsTerminalRunState returns true if no further transitions are allowed
func IsTerminalRunState(state RunStatus) bool {
	return state == RunStatusCompleted || state == RunStatusFailed || state == RunStatusCanceled
}

// TrainRequest is the API payload to start a training cycle
type TrainRequest struct {
	TotalUnits int `json:"total_units"`
}

// EnabledRequest is the API payload to toggle the selector
type EnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ColdStartRequest is the API payload to override the cold-start flag
type ColdStartRequest struct {
	ColdStart bool `json:"cold_start"`
}

// TokenRequest is the API payload to issue a short-lived client token
type TokenRequest struct {
	ClientID   string `json:"client_id"`
	TTLMinutes int    `json:"ttl_minutes,omitempty"`
}

// TokenResponse carries an issued client token
type TokenResponse struct {
	ClientID  string    `json:"client_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
