package cmd

import (
	"fmt"
	"io"

	"github.com/iksnae/completeness-tracker/internal"
	"github.com/spf13/cobra"
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that the session ledgers can be located and read",
	Long: `Check the health of completeness-tracker by verifying:
  • Configuration and data directory
  • Ledger backend availability (jsonl session directories or sqlite database)
  • Session listing
  • Readability of the most recent session's ledgers

Use --verbose for paths and per-step details.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealthcheck(cmd, cmd.OutOrStdout())
	},
}

func runHealthcheck(cmd *cobra.Command, w io.Writer) error {
	fmt.Fprintln(w, sectionStyle.Render("🔍 Completeness Tracker Health Check"))
	fmt.Fprintln(w)

	// Step 1: Configuration
	fmt.Fprintln(w, infoStyle.Render("Step 1: Resolving configuration..."))
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ Backend: %s", cfg.Backend)))
	if verbose {
		fmt.Fprintf(w, "   Data directory: %s\n", cfg.Paths.BaseDir)
		if cfg.ConfigFile != "" {
			fmt.Fprintf(w, "   Config file: %s\n", cfg.ConfigFile)
		} else {
			fmt.Fprintf(w, "   Config file: none (defaults and environment)\n")
		}
		fmt.Fprintf(w, "   Poll interval: %s\n", cfg.PollInterval)
	}
	fmt.Fprintln(w)

	// Step 2: Data directory
	fmt.Fprintln(w, infoStyle.Render("Step 2: Checking data directory..."))
	if !cfg.Paths.BaseExists() {
		fmt.Fprintln(w, warningStyle.Render("⚠️  Data directory not found"))
		fmt.Fprintf(w, "   Expected: %s\n", cfg.Paths.BaseDir)
		fmt.Fprintln(w, "   It is created by the first write (serve, record or sessions new).")
		fmt.Fprintln(w)
		fmt.Fprintln(w, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(w, warningStyle.Render("⚠️  No data yet"))
		return nil
	}
	fmt.Fprintln(w, successStyle.Render("✅ Data directory exists"))
	fmt.Fprintln(w)

	// Step 3: Backend storage
	fmt.Fprintln(w, infoStyle.Render("Step 3: Checking ledger storage..."))
	switch cfg.Backend {
	case internal.BackendSQLite:
		if !cfg.Paths.DatabaseExists() {
			fmt.Fprintln(w, errorStyle.Render("❌ Ledger database not found"))
			fmt.Fprintf(w, "   Expected: %s\n", cfg.Paths.DatabasePath)
			return fmt.Errorf("health check failed: no ledger database")
		}
		fmt.Fprintln(w, successStyle.Render("✅ Ledger database found"))
		if verbose {
			fmt.Fprintf(w, "   Database: %s\n", cfg.Paths.DatabasePath)
		}
	default:
		dirs, err := cfg.Paths.FindSessionDirs()
		if err != nil {
			fmt.Fprintln(w, errorStyle.Render("❌ Failed to scan session directories:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ Found %d session director(ies)", len(dirs))))
		if verbose {
			for i, dir := range dirs {
				if i == 5 {
					fmt.Fprintf(w, "   ... and %d more\n", len(dirs)-5)
					break
				}
				fmt.Fprintf(w, "   [%d] %s\n", i+1, dir)
			}
		}
	}
	fmt.Fprintln(w)

	// Step 4: Sessions
	fmt.Fprintln(w, infoStyle.Render("Step 4: Loading sessions..."))
	store, err := openStore(true)
	if err != nil {
		fmt.Fprintln(w, errorStyle.Render("❌ Failed to open store:"), err)
		return fmt.Errorf("health check failed: %w", err)
	}
	defer closeStore(store)

	ctx := cmd.Context()
	sessions, err := store.ListSessions(ctx)
	if err != nil {
		fmt.Fprintln(w, errorStyle.Render("❌ Failed to list sessions:"), err)
		return fmt.Errorf("health check failed: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, warningStyle.Render("⚠️  No sessions found"))
		fmt.Fprintln(w)
		fmt.Fprintln(w, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(w, warningStyle.Render("⚠️  Storage available but no sessions found"))
		return nil
	}
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ Found %d session(s)", len(sessions))))
	fmt.Fprintln(w)

	// Step 5: Most recent session
	fmt.Fprintln(w, infoStyle.Render("Step 5: Reading the most recent session..."))
	recent, err := store.MostRecentSession(ctx)
	if err != nil {
		fmt.Fprintln(w, errorStyle.Render("❌ Failed to find the most recent session:"), err)
		return fmt.Errorf("health check failed: %w", err)
	}
	var stats internal.SessionStats
	err = internal.ShowProgress(ctx, fmt.Sprintf("Reading ledgers of session %s", recent.ID), func() error {
		var statsErr error
		stats, statsErr = store.Stats(ctx, recent.ID)
		return statsErr
	})
	if err != nil {
		fmt.Fprintln(w, errorStyle.Render("❌ Failed to read ledgers:"), err)
		return fmt.Errorf("health check failed: %w", err)
	}
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✅ Session %s: %d fact(s), %d snapshot(s)", recent.ID, stats.Facts, stats.Snapshots)))
	if stats.Malformed > 0 {
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("⚠️  %d malformed ledger line(s) skipped", stats.Malformed)))
	}
	fmt.Fprintln(w)

	// Summary
	fmt.Fprintln(w, sectionStyle.Render("📊 Summary"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, successStyle.Render("✅ Health check passed!"))
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("   • Backend: %s", cfg.Backend)))
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("   • Sessions: %d found", len(sessions))))
	return nil
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
