package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultDataDirName = ".completeness-tracker"
	sessionsDirName    = "sessions"
	indexFileName      = "index.yaml"
	databaseFileName   = "ledger.db"
	configFileName     = "config.yaml"
)

// DataPaths holds the resolved locations of tracker storage
type DataPaths struct {
	BaseDir      string // root data directory
	SessionsDir  string // one subdirectory per session (jsonl backend)
	IndexPath    string // YAML session index
	DatabasePath string // sqlite backend database
	ConfigPath   string // default config file
}

// DetectDataPaths resolves the data directory. An empty custom path selects
// ~/.completeness-tracker; a leading ~ is expanded.
func DetectDataPaths(custom string) (DataPaths, error) {
	base := strings.TrimSpace(custom)
	if base == "" || base == "~" || strings.HasPrefix(base, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return DataPaths{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		switch {
		case base == "":
			base = filepath.Join(home, defaultDataDirName)
		case base == "~":
			base = home
		default:
			base = filepath.Join(home, base[2:])
		}
	}

	abs, err := filepath.Abs(base)
	if err != nil {
		return DataPaths{}, fmt.Errorf("failed to resolve data directory: %w", err)
	}

	return NewDataPaths(abs), nil
}

// NewDataPaths lays out the standard files under base
func NewDataPaths(base string) DataPaths {
	sessions := filepath.Join(base, sessionsDirName)
	return DataPaths{
		BaseDir:      base,
		SessionsDir:  sessions,
		IndexPath:    filepath.Join(sessions, indexFileName),
		DatabasePath: filepath.Join(base, databaseFileName),
		ConfigPath:   filepath.Join(base, configFileName),
	}
}

// SessionDir returns the directory holding one session's ledgers
func (dp DataPaths) SessionDir(sessionID string) string {
	return filepath.Join(dp.SessionsDir, sessionID)
}

// BaseExists checks if the data directory exists
func (dp DataPaths) BaseExists() bool {
	info, err := os.Stat(dp.BaseDir)
	return err == nil && info.IsDir()
}

// DatabaseExists checks if the sqlite ledger database exists
func (dp DataPaths) DatabaseExists() bool {
	_, err := os.Stat(dp.DatabasePath)
	return err == nil
}

// FindSessionDirs lists session directory names under SessionsDir
func (dp DataPaths) FindSessionDirs() ([]string, error) {
	entries, err := os.ReadDir(dp.SessionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, &StorageError{Path: dp.SessionsDir, Op: "read", Err: err}
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && validSessionID(entry.Name()) {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}

// validSessionID rejects identifiers that would escape the sessions directory
func validSessionID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && !strings.HasPrefix(id, ".")
}
