package bandit

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadStateMissingFile(t *testing.T) {
	state, err := LoadState(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadState on missing file should not error: %v", err)
	}
	if !state.ColdStart() {
		t.Error("missing state file should produce a cold-start state")
	}
}

func TestSaveAndLoadState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bandit_state.json")

	state := DefaultState()
	state.Weights["hybrid"] = StrategyWeight{Weight: 0.62, Pulls: 41, Reward: 25.4}
	state.Weights["dense"] = StrategyWeight{Weight: 0.38, Pulls: 17, Reward: 6.5}

	if err := SaveState(path, state); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	loaded, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if loaded.ColdStart() {
		t.Error("saved state should not be cold start")
	}
	if got := loaded.Weights["hybrid"].Pulls; got != 41 {
		t.Errorf("hybrid pulls = %d, want 41", got)
	}
	if loaded.UpdatedAt.IsZero() {
		t.Error("SaveState should stamp updated_at")
	}
}

func TestLoadStateCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadState(path); err == nil {
		t.Error("LoadState should reject a corrupt file")
	}
}

func TestSeedState(t *testing.T) {
	srcDir := t.TempDir()
	configDir := filepath.Join(t.TempDir(), "config")

	src := filepath.Join(srcDir, "trained.json")
	state := DefaultState()
	state.Weights["sparse"] = StrategyWeight{Weight: 1.0, Pulls: 3}
	if err := SaveState(src, state); err != nil {
		t.Fatal(err)
	}

	dst, err := SeedState(src, configDir)
	if err != nil {
		t.Fatalf("SeedState failed: %v", err)
	}
	if dst != filepath.Join(configDir, StateFileName) {
		t.Errorf("unexpected destination: %s", dst)
	}

	seeded, err := LoadState(dst)
	if err != nil {
		t.Fatalf("loading seeded state failed: %v", err)
	}
	if seeded.Weights["sparse"].Pulls != 3 {
		t.Error("seeded state lost weights")
	}
}

func TestSeedStateRejectsCorruptSource(t *testing.T) {
	src := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(src, []byte("[[["), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := SeedState(src, t.TempDir()); err == nil {
		t.Error("SeedState should reject a corrupt source file")
	}
}

func TestSeedStateMissingSource(t *testing.T) {
	if _, err := SeedState(filepath.Join(t.TempDir(), "absent.json"), t.TempDir()); err == nil {
		t.Error("SeedState should fail when the source file does not exist")
	}
}
