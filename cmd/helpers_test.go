package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/iksnae/completeness-tracker/internal"
	"github.com/iksnae/completeness-tracker/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default, since rootCmd is shared between tests
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the CLI against dir with the given backend and returns its stdout
func execute(t *testing.T, dir string, backend internal.Backend, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--data-dir", dir, "--backend", string(backend)}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// seed writes a session to dir and closes the store so the CLI sees a settled ledger
func seed(t *testing.T, dir string, backend internal.Backend, facts []internal.FactInput, snapshots ...[]internal.ScoreEntry) string {
	t.Helper()
	store, err := internal.OpenStore(internal.NewDataPaths(dir), backend, internal.StoreOptions{})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer func() { _ = store.Close() }()
	return testutil.SeedSession(t, store, facts, snapshots...)
}

var (
	level    = testutil.Level
	backends = testutil.Backends
)
