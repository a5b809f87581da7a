package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func TestState_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "state.json")

	saved := &RunState{
		RunID:       "run-123",
		LastRun:     time.Date(2025, 3, 10, 14, 5, 0, 0, time.UTC),
		WindowStart: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC),
		LastDocID:   "doc-abc",
		LastCount:   7,
	}
	if err := SaveState(path, saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadState(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *loaded != *saved {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, saved)
	}
}

func TestLoadState_MissingFileIsEmptyState(t *testing.T) {
	state, err := LoadState(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if !state.LastRun.IsZero() || state.RunID != "" {
		t.Errorf("expected zero state, got %+v", state)
	}
}

func TestSaveState_OverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	if err := SaveState(path, &RunState{RunID: "first"}); err != nil {
		t.Fatal(err)
	}
	if err := SaveState(path, &RunState{RunID: "second"}); err != nil {
		t.Fatal(err)
	}

	state, err := LoadState(path)
	if err != nil {
		t.Fatal(err)
	}
	if state.RunID != "second" {
		t.Errorf("got %q, want the last saved state", state.RunID)
	}
}
