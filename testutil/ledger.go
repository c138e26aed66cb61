package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/completeness-tracker/internal"
)

// AppendLedgerLines writes raw lines to a session's JSONL ledger file
// ("information", "completeness" or "tools"), bypassing validation, to build
// malformed or partially written fixtures. Each line gets a trailing newline
// unless partial is set for the last one.
func AppendLedgerLines(t *testing.T, dir, sessionID, ledger string, partial bool, lines ...string) {
	t.Helper()
	sessionDir := internal.NewDataPaths(dir).SessionDir(sessionID)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		t.Fatalf("Failed to create session directory: %v", err)
	}

	content := strings.Join(lines, "\n")
	if !partial {
		content += "\n"
	}

	path := filepath.Join(sessionDir, ledger+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("Failed to open ledger %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("Failed to write ledger %s: %v", path, err)
	}
}
