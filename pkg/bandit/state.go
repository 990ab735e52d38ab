package bandit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StateFileName is the file the daemon reads its learned weights from.
const StateFileName = "bandit_state.json"

// StrategyWeight holds the learned parameters for one retrieval strategy.
// The selection algorithm that produces these lives in the backend; the
// daemon only loads, stores and seeds them.
type StrategyWeight struct {
	Weight float64 `json:"weight"`
	Pulls  int     `json:"pulls"`
	Reward float64 `json:"reward"`
}

// State is the on-disk weights file for the strategy selector.
type State struct {
	Version   int                       `json:"version"`
	UpdatedAt time.Time                 `json:"updated_at"`
	Weights   map[string]StrategyWeight `json:"weights"`
}

// DefaultState returns a state with no learned weights. A cycle that
// begins from it is a cold start.
func DefaultState() *State {
	return &State{
		Version: 1,
		Weights: make(map[string]StrategyWeight),
	}
}

// ColdStart reports whether the state carries no learned weights.
func (s *State) ColdStart() bool {
	return len(s.Weights) == 0
}

// LoadState reads a state file from path. A missing file is not an
// error: the default state is returned so the caller can flag a cold start.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultState(), nil
		}
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	if state.Weights == nil {
		state.Weights = make(map[string]StrategyWeight)
	}
	return &state, nil
}

// SaveState writes the state to path atomically (temp file + rename).
func SaveState(path string, state *State) error {
	state.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// SeedState copies a weights file into the daemon config directory so the
// next cycle starts from it. The source must parse as a valid state file;
// a corrupt seed is rejected rather than copied blindly.
func SeedState(srcPath, configDir string) (string, error) {
	state, err := LoadState(srcPath)
	if err != nil {
		return "", err
	}
	if _, statErr := os.Stat(srcPath); statErr != nil {
		return "", fmt.Errorf("seed file %s: %w", srcPath, statErr)
	}

	dstPath := filepath.Join(configDir, StateFileName)
	if err := SaveState(dstPath, state); err != nil {
		return "", err
	}
	return dstPath, nil
}
