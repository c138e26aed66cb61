package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/completeness-tracker/internal"
	"github.com/iksnae/completeness-tracker/internal/tools"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	dataDir    string
	backend    string
	configFile string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"

	cfg internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "completeness-tracker",
	Short: "Track how completely a planning conversation covers each life-planning topic",
	Long: `Record and follow the facts and topic coverage gathered during a
retirement-planning conversation.

A planning agent writes facts and completeness snapshots through the MCP
tool server (or the record commands). Advisors follow along with the live
completeness monitor and the profile viewer.

Topics:
  income_cash_flow, healthcare_medicare, housing_geography,
  tax_efficiency_rmds, longevity_inflation, long_term_care,
  lifestyle_purpose, estate_planning

Quick Start:
  completeness-tracker sessions new            # Start a session
  completeness-tracker serve                   # Run the agent tool server
  completeness-tracker completeness            # Watch coverage live
  completeness-tracker profile                 # Watch the client profile
  completeness-tracker export --format md      # Export a session`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetVerbose(verbose)
		v := internal.NewViper()
		flags := cmd.Root().PersistentFlags()
		_ = v.BindPFlag(internal.KeyDataDir, flags.Lookup("data-dir"))
		_ = v.BindPFlag(internal.KeyBackend, flags.Lookup("backend"))

		loaded, err := internal.LoadConfig(v, configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		tools.Version = version
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		internal.PrintError(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}

// openStore opens the configured ledger backend. Readers pass readOnly so
// they never create sessions or databases.
func openStore(readOnly bool) (internal.Store, error) {
	store, err := internal.OpenStore(cfg.Paths, cfg.Backend, internal.StoreOptions{ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Backend, err)
	}
	return store, nil
}

func closeStore(store internal.Store) {
	if err := store.Close(); err != nil {
		internal.LogWarn("Failed to close store: %v", err)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&dataDir, "data-dir", "", "Data directory (default ~/.completeness-tracker)")
	flags.StringVar(&backend, "backend", "", "Ledger backend (jsonl, sqlite)")
	flags.StringVar(&configFile, "config", "", "Config file (default <data-dir>/config.yaml)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
