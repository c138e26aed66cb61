package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	indexFileMode   = 0o644
	indexDirMode    = 0o755
	indexTempPrefix = ".index-*.yaml.tmp"
	indexVersion    = 1
)

// IndexEntry represents a session entry in the index
type IndexEntry struct {
	ID          string    `yaml:"id"`
	CreatedAt   time.Time `yaml:"created_at"`
	Description string    `yaml:"description,omitempty"`
}

// SessionIndexFile is the YAML document listing every known session
type SessionIndexFile struct {
	Version  int          `yaml:"version"`
	Sessions []IndexEntry `yaml:"sessions"`
}

// SessionIndex manages the session index file
type SessionIndex struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

// lockForPath returns the process-wide lock guarding path
func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

// NewSessionIndex creates an index manager for path
func NewSessionIndex(path string) *SessionIndex {
	return &SessionIndex{path: path, mu: lockForPath(path)}
}

// Path returns the index file location
func (si *SessionIndex) Path() string {
	return si.path
}

// Load reads the index. A missing file is an empty index.
func (si *SessionIndex) Load() (*SessionIndexFile, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return si.load()
}

// Ensure adds id to the index if it is not there yet and returns its entry
func (si *SessionIndex) Ensure(id string, createdAt time.Time, description string) (IndexEntry, error) {
	var result IndexEntry
	err := si.update(func(index *SessionIndexFile) bool {
		for _, entry := range index.Sessions {
			if entry.ID == id {
				result = entry
				return false
			}
		}
		result = IndexEntry{ID: id, CreatedAt: createdAt.UTC(), Description: description}
		index.Sessions = append(index.Sessions, result)
		return true
	})
	return result, err
}

// SetDescription replaces the description of id. It reports whether id was found.
func (si *SessionIndex) SetDescription(id, description string) (bool, error) {
	found := false
	err := si.update(func(index *SessionIndexFile) bool {
		for i := range index.Sessions {
			if index.Sessions[i].ID == id {
				index.Sessions[i].Description = description
				found = true
				return true
			}
		}
		return false
	})
	return found, err
}

func (si *SessionIndex) update(mutate func(*SessionIndexFile) bool) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	index, err := si.load()
	if err != nil {
		return err
	}
	if !mutate(index) {
		return nil
	}
	return si.save(index)
}

func (si *SessionIndex) load() (*SessionIndexFile, error) {
	data, err := os.ReadFile(si.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &SessionIndexFile{Version: indexVersion}, nil
		}
		return nil, &StorageError{Path: si.path, Op: "read", Err: err}
	}

	var index SessionIndexFile
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, &StorageError{Path: si.path, Op: "read", Err: fmt.Errorf("failed to unmarshal index: %w", err)}
	}
	if index.Version == 0 {
		index.Version = indexVersion
	}
	return &index, nil
}

// save replaces the index file atomically
func (si *SessionIndex) save(index *SessionIndexFile) error {
	dir := filepath.Dir(si.path)
	if err := os.MkdirAll(dir, indexDirMode); err != nil {
		return &StorageError{Path: dir, Op: "create", Err: err}
	}

	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, indexTempPrefix)
	if err != nil {
		return &StorageError{Path: si.path, Op: "write", Err: err}
	}
	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return &StorageError{Path: tempName, Op: "write", Err: err}
	}
	if err := tempFile.Chmod(indexFileMode); err != nil {
		_ = tempFile.Close()
		return &StorageError{Path: tempName, Op: "chmod", Err: err}
	}
	if err := tempFile.Close(); err != nil {
		return &StorageError{Path: tempName, Op: "close", Err: err}
	}
	if err := os.Rename(tempName, si.path); err != nil {
		return &StorageError{Path: si.path, Op: "replace", Err: err}
	}

	cleanup = false
	return nil
}
