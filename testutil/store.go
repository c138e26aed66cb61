// Package testutil provides helpers for tests that need a populated session store.
package testutil

import (
	"context"
	"testing"

	"github.com/iksnae/completeness-tracker/internal"
)

// Backends lists every ledger backend, for tests that run against each
var Backends = []internal.Backend{internal.BackendJSONL, internal.BackendSQLite}

// OpenStore opens a writable store of the given backend rooted at dir and
// closes it when the test ends
func OpenStore(t *testing.T, dir string, backend internal.Backend) internal.Store {
	t.Helper()
	store, err := internal.OpenStore(internal.NewDataPaths(dir), backend, internal.StoreOptions{})
	if err != nil {
		t.Fatalf("Failed to open %s store: %v", backend, err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// NewStore opens a writable store in a fresh temporary directory
func NewStore(t *testing.T, backend internal.Backend) internal.Store {
	t.Helper()
	return OpenStore(t, t.TempDir(), backend)
}

// SeedSession creates a session and appends facts, then snapshots, in order.
// It returns the session ID.
func SeedSession(t *testing.T, store internal.Store, facts []internal.FactInput, snapshots ...[]internal.ScoreEntry) string {
	t.Helper()
	ctx := context.Background()

	record, err := store.CreateSession(ctx, "seeded")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	for _, in := range facts {
		if _, err := store.AppendFact(ctx, record.ID, in); err != nil {
			t.Fatalf("Failed to append fact: %v", err)
		}
	}
	for _, scores := range snapshots {
		if _, err := store.AppendSnapshot(ctx, record.ID, scores); err != nil {
			t.Fatalf("Failed to append snapshot: %v", err)
		}
	}
	return record.ID
}

// Level builds a score entry carrying only a level
func Level(t *testing.T, topic, level string) internal.ScoreEntry {
	t.Helper()
	entry, err := internal.NewScoreEntry(topic, level, nil, "")
	if err != nil {
		t.Fatalf("Invalid score entry %s=%s: %v", topic, level, err)
	}
	return entry
}

// Score builds a score entry from a numeric score, deriving its level
func Score(t *testing.T, topic string, score int) internal.ScoreEntry {
	t.Helper()
	entry, err := internal.NewScoreEntry(topic, "", &score, "")
	if err != nil {
		t.Fatalf("Invalid score entry %s=%d: %v", topic, score, err)
	}
	return entry
}
