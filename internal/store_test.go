package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T, paths DataPaths, opts StoreOptions) Store

var storeBackends = map[Backend]storeFactory{
	BackendJSONL: func(t *testing.T, paths DataPaths, opts StoreOptions) Store {
		return NewFileStore(paths, opts)
	},
	BackendSQLite: func(t *testing.T, paths DataPaths, opts StoreOptions) Store {
		store, err := OpenSQLiteStore(paths, opts)
		require.NoError(t, err)
		return store
	},
}

// forEachBackend runs fn against a fresh store of every backend
func forEachBackend(t *testing.T, fn func(t *testing.T, store Store, paths DataPaths)) {
	t.Helper()
	for backend, factory := range storeBackends {
		t.Run(string(backend), func(t *testing.T) {
			paths := NewDataPaths(t.TempDir())
			store := factory(t, paths, StoreOptions{})
			t.Cleanup(func() { _ = store.Close() })
			fn(t, store, paths)
		})
	}
}

func mustScore(t *testing.T, topic Topic, level Level) ScoreEntry {
	t.Helper()
	return ScoreEntry{Topic: topic, Level: level}
}

func TestStoreAppendAndReadFacts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store, _ DataPaths) {
		ctx := context.Background()

		first, err := store.AppendFact(ctx, "s1", FactInput{Topic: "income_cash_flow", Subtopic: "pension", Value: "Pension of $2k/mo"})
		require.NoError(t, err)
		assert.NotEmpty(t, first.ID)
		assert.Equal(t, DefaultConfidence, first.Confidence)

		_, err = store.AppendFact(ctx, "s1", FactInput{Topic: "income_cash_flow", Subtopic: "pension", Value: "Starts at 65", FactType: "start_age"})
		require.NoError(t, err)
		_, err = store.AppendFact(ctx, "s1", FactInput{Topic: "estate_planning", Value: "Has a will"})
		require.NoError(t, err)

		facts, err := store.ReadFacts(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, facts, 3)
		for i, fact := range facts {
			assert.Equal(t, i+1, fact.Seq)
			assert.Equal(t, "s1", fact.SessionID)
		}
		assert.Equal(t, "Pension of $2k/mo", facts[0].Value)
		assert.Equal(t, "Starts at 65", facts[1].Value)
		assert.Equal(t, "start_age", facts[1].FactType)
		assert.Equal(t, TopicEstatePlanning, facts[2].Topic)
	})
}

func TestStoreRejectsInvalidWrites(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store, _ DataPaths) {
		ctx := context.Background()
		var validation *ValidationError

		_, err := store.AppendFact(ctx, "s1", FactInput{Topic: "crypto", Value: "x"})
		require.ErrorAs(t, err, &validation)

		_, err = store.AppendSnapshot(ctx, "s1", nil)
		require.ErrorAs(t, err, &validation)

		_, err = store.AppendSnapshot(ctx, "s1", []ScoreEntry{{Topic: "crypto", Level: LevelNone}})
		require.ErrorAs(t, err, &validation)

		_, err = store.AppendFact(ctx, "../escape", FactInput{Topic: "income_cash_flow", Value: "x"})
		require.ErrorAs(t, err, &validation)

		exists, err := store.SessionExists(ctx, "s1")
		require.NoError(t, err)
		assert.False(t, exists, "rejected writes must not create the session")
	})
}

func TestStoreUnknownAndEmptySessions(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store, _ DataPaths) {
		ctx := context.Background()

		_, err := store.ReadFacts(ctx, "missing")
		assert.True(t, IsNotFound(err), "ReadFacts on unknown session: %v", err)
		_, err = store.ReadSnapshots(ctx, "missing")
		assert.True(t, IsNotFound(err), "ReadSnapshots on unknown session: %v", err)

		record, err := store.CreateSession(ctx, "intake call")
		require.NoError(t, err)

		facts, err := store.ReadFacts(ctx, record.ID)
		require.NoError(t, err)
		assert.Empty(t, facts)
		assert.NotNil(t, facts)

		snapshots, err := store.ReadSnapshots(ctx, record.ID)
		require.NoError(t, err)
		assert.Empty(t, snapshots)
	})
}

func TestStoreSnapshotsAreOrderedAndSparse(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store, _ DataPaths) {
		ctx := context.Background()

		_, err := store.AppendSnapshot(ctx, "s1", []ScoreEntry{
			mustScore(t, TopicIncomeCashFlow, LevelPartial),
			mustScore(t, TopicHealthcareMedicare, LevelMostly),
		})
		require.NoError(t, err)
		_, err = store.AppendSnapshot(ctx, "s1", []ScoreEntry{
			mustScore(t, TopicIncomeCashFlow, LevelMostly),
		})
		require.NoError(t, err)

		snapshots, err := store.ReadSnapshots(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, snapshots, 2)
		assert.Len(t, snapshots[0].Scores, 2)
		assert.Len(t, snapshots[1].Scores, 1)

		statuses := SummarizeCoverage(snapshots)
		assert.Equal(t, TrendUp, statuses[0].Trend)
		assert.Equal(t, TrendNeutral, statuses[1].Trend)
		assert.Equal(t, LevelMostly, statuses[1].Level)
	})
}

func TestStoreSessionsAreIsolated(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store, _ DataPaths) {
		ctx := context.Background()

		_, err := store.AppendFact(ctx, "a", FactInput{Topic: "long_term_care", Value: "No LTC policy"})
		require.NoError(t, err)
		_, err = store.AppendFact(ctx, "b", FactInput{Topic: "lifestyle_purpose", Value: "Wants to volunteer"})
		require.NoError(t, err)

		factsA, err := store.ReadFacts(ctx, "a")
		require.NoError(t, err)
		require.Len(t, factsA, 1)
		assert.Equal(t, TopicLongTermCare, factsA[0].Topic)

		sessions, err := store.ListSessions(ctx)
		require.NoError(t, err)
		assert.Len(t, sessions, 2)
	})
}

func TestStoreDescribeAndStats(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store, _ DataPaths) {
		ctx := context.Background()

		_, err := store.AppendFact(ctx, "s1", FactInput{Topic: "housing_geography", Value: "Owns home outright"})
		require.NoError(t, err)
		_, err = store.AppendSnapshot(ctx, "s1", []ScoreEntry{mustScore(t, TopicHousingGeography, LevelPartial)})
		require.NoError(t, err)
		_, err = store.AppendToolEvent(ctx, "s1", "information", "housing_geography")
		require.NoError(t, err)

		require.NoError(t, store.DescribeSession(ctx, "s1", "first meeting"))
		assert.True(t, IsNotFound(store.DescribeSession(ctx, "nope", "x")))

		sessions, err := store.ListSessions(ctx)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, "first meeting", sessions[0].Description)

		stats, err := store.Stats(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Facts)
		assert.Equal(t, 1, stats.Snapshots)
		assert.Equal(t, 1, stats.ToolEvents)
		assert.Zero(t, stats.Malformed)
		assert.False(t, stats.LastActiveAt.IsZero())

		events, err := store.ReadToolEvents(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "information", events[0].Tool)
	})
}

func TestStoreMostRecentSession(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store, _ DataPaths) {
		ctx := context.Background()

		_, err := store.MostRecentSession(ctx)
		assert.True(t, IsNotFound(err))

		clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		setClock(store, func() time.Time { return clock })

		_, err = store.AppendFact(ctx, "older", FactInput{Topic: "income_cash_flow", Value: "x"})
		require.NoError(t, err)
		touchLedgers(t, store, "older", clock)
		clock = clock.Add(time.Hour)
		_, err = store.AppendFact(ctx, "newer", FactInput{Topic: "income_cash_flow", Value: "y"})
		require.NoError(t, err)
		touchLedgers(t, store, "newer", clock)
		clock = clock.Add(time.Hour)
		_, err = store.AppendFact(ctx, "older", FactInput{Topic: "income_cash_flow", Value: "z"})
		require.NoError(t, err)
		touchLedgers(t, store, "older", clock)

		recent, err := store.MostRecentSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, "older", recent.ID)
	})
}

func TestStoreConcurrentAppends(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store, _ DataPaths) {
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := store.AppendFact(ctx, "s1", FactInput{Topic: "tax_efficiency_rmds", Value: fmt.Sprintf("fact %d", i)})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		facts, err := store.ReadFacts(ctx, "s1")
		require.NoError(t, err)
		assert.Len(t, facts, 20)
	})
}

func TestStoreReadOnly(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store, paths DataPaths) {
		ctx := context.Background()
		_, err := store.AppendFact(ctx, "s1", FactInput{Topic: "income_cash_flow", Value: "x"})
		require.NoError(t, err)

		backend := BackendJSONL
		if _, ok := store.(*SQLiteStore); ok {
			backend = BackendSQLite
		}
		reader, err := OpenStore(paths, backend, StoreOptions{ReadOnly: true})
		require.NoError(t, err)
		defer reader.Close()

		facts, err := reader.ReadFacts(ctx, "s1")
		require.NoError(t, err)
		assert.Len(t, facts, 1)

		_, err = reader.AppendFact(ctx, "s1", FactInput{Topic: "income_cash_flow", Value: "y"})
		assert.Error(t, err)
	})
}

func TestFileStoreIgnoresPartialTrailingLine(t *testing.T) {
	t.Parallel()

	paths := NewDataPaths(t.TempDir())
	store := NewFileStore(paths, StoreOptions{})
	ctx := context.Background()

	_, err := store.AppendFact(ctx, "s1", FactInput{Topic: "income_cash_flow", Value: "complete"})
	require.NoError(t, err)

	f, err := os.OpenFile(store.ledgerPath("s1", informationLedger), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id":"half","session_id":"s1","topic":"inc`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	facts, err := store.ReadFacts(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "complete", facts[0].Value)

	stats, err := store.Stats(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, stats.Malformed, "an unterminated line is in flight, not malformed")
}

func TestFileStoreSkipsMalformedLines(t *testing.T) {
	t.Parallel()

	paths := NewDataPaths(t.TempDir())
	store := NewFileStore(paths, StoreOptions{})
	ctx := context.Background()

	_, err := store.AppendFact(ctx, "s1", FactInput{Topic: "income_cash_flow", Value: "before"})
	require.NoError(t, err)

	path := store.ledgerPath("s1", informationLedger)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n" + `{"id":"x","session_id":"s1","topic":"boats","value":"v"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = store.AppendFact(ctx, "s1", FactInput{Topic: "income_cash_flow", Value: "after"})
	require.NoError(t, err)

	facts, err := store.ReadFacts(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "before", facts[0].Value)
	assert.Equal(t, "after", facts[1].Value)
	assert.Equal(t, 2, facts[1].Seq)

	stats, err := store.Stats(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Malformed)
}

func TestFileStoreLedgerLayout(t *testing.T) {
	t.Parallel()

	paths := NewDataPaths(t.TempDir())
	store := NewFileStore(paths, StoreOptions{})

	_, err := store.AppendSnapshot(context.Background(), "s1", []ScoreEntry{mustScore(t, TopicLongTermCare, LevelNone)})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(paths.SessionsDir, "s1", "completeness.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scores":[{"topic":"long_term_care","level":"none"}]`)

	entry, ok := indexEntry(t, store.index, "s1")
	assert.True(t, ok)
	assert.Equal(t, "s1", entry.ID)
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	_, err := OpenStore(NewDataPaths(t.TempDir()), Backend("redis"), StoreOptions{})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)

	backend, err := ParseBackend(" SQLite ")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, backend)
}

// setClock pins the timestamps a store assigns to new records
func setClock(store Store, now func() time.Time) {
	switch s := store.(type) {
	case *FileStore:
		s.now = now
	case *SQLiteStore:
		s.now = now
	}
}

// touchLedgers aligns file modification times with the pinned clock
func touchLedgers(t *testing.T, store Store, sessionID string, at time.Time) {
	t.Helper()
	fs, ok := store.(*FileStore)
	if !ok {
		return
	}
	for _, ledger := range []string{informationLedger, completenessLedger, toolsLedger} {
		path := fs.ledgerPath(sessionID, ledger)
		if _, err := os.Stat(path); err == nil {
			require.NoError(t, os.Chtimes(path, at, at))
		}
	}
}
