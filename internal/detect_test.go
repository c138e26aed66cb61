package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectDataPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		name     string
		custom   string
		wantBase string
	}{
		{name: "default", custom: "", wantBase: filepath.Join(home, ".completeness-tracker")},
		{name: "tilde", custom: "~/planner", wantBase: filepath.Join(home, "planner")},
		{name: "absolute", custom: "/tmp/tracker", wantBase: "/tmp/tracker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths, err := DetectDataPaths(tt.custom)
			if err != nil {
				t.Fatalf("DetectDataPaths() error = %v", err)
			}
			if paths.BaseDir != tt.wantBase {
				t.Errorf("BaseDir = %v, want %v", paths.BaseDir, tt.wantBase)
			}
			if paths.SessionsDir != filepath.Join(tt.wantBase, "sessions") {
				t.Errorf("SessionsDir = %v", paths.SessionsDir)
			}
			if paths.IndexPath != filepath.Join(tt.wantBase, "sessions", "index.yaml") {
				t.Errorf("IndexPath = %v", paths.IndexPath)
			}
			if paths.DatabasePath != filepath.Join(tt.wantBase, "ledger.db") {
				t.Errorf("DatabasePath = %v", paths.DatabasePath)
			}
		})
	}
}

func TestFindSessionDirs(t *testing.T) {
	paths := NewDataPaths(t.TempDir())

	ids, err := paths.FindSessionDirs()
	if err != nil {
		t.Fatalf("FindSessionDirs() on missing dir error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no sessions, got %v", ids)
	}

	for _, name := range []string{"a", "b", ".hidden"} {
		if err := os.MkdirAll(paths.SessionDir(name), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(paths.IndexPath, []byte("sessions: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ids, err = paths.FindSessionDirs()
	if err != nil {
		t.Fatalf("FindSessionDirs() error = %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("FindSessionDirs() = %v, want [a b]", ids)
	}
}

func TestValidSessionID(t *testing.T) {
	for _, id := range []string{"", ".", "..", "a/b", `a\b`, ".x"} {
		if validSessionID(id) {
			t.Errorf("validSessionID(%q) = true, want false", id)
		}
	}
	if !validSessionID("0b7d8f0e-1234") {
		t.Error("uuid-like id should be valid")
	}
}
