package internal

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIndexEnsureAndDescribe(t *testing.T) {
	t.Parallel()

	index := NewSessionIndex(filepath.Join(t.TempDir(), "sessions", "index.yaml"))

	file, err := index.Load()
	require.NoError(t, err)
	assert.Empty(t, file.Sessions)

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	entry, err := index.Ensure("s1", created, "first meeting")
	require.NoError(t, err)
	assert.Equal(t, "first meeting", entry.Description)

	again, err := index.Ensure("s1", created.Add(time.Hour), "ignored")
	require.NoError(t, err)
	assert.Equal(t, entry, again, "Ensure must not overwrite an existing entry")

	found, err := index.SetDescription("s1", "follow-up")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = index.SetDescription("missing", "x")
	require.NoError(t, err)
	assert.False(t, found)

	got, ok := indexEntry(t, index, "s1")
	require.True(t, ok)
	assert.Equal(t, "follow-up", got.Description)
	assert.True(t, got.CreatedAt.Equal(created))

	data, err := os.ReadFile(index.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: 1")
}

func TestSessionIndexConcurrentEnsure(t *testing.T) {
	t.Parallel()

	index := NewSessionIndex(filepath.Join(t.TempDir(), "index.yaml"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := index.Ensure(string(rune('a'+i)), time.Now(), "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	file, err := index.Load()
	require.NoError(t, err)
	assert.Len(t, file.Sessions, 16)
}

func TestSessionIndexCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sessions: [\n"), 0o644))

	_, err := NewSessionIndex(path).Load()
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "read", storageErr.Op)
}

func indexEntry(t *testing.T, index *SessionIndex, id string) (IndexEntry, bool) {
	t.Helper()
	file, err := index.Load()
	require.NoError(t, err)
	for _, entry := range file.Sessions {
		if entry.ID == id {
			return entry, true
		}
	}
	return IndexEntry{}, false
}
