package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/iksnae/completeness-tracker/internal"
	"github.com/iksnae/completeness-tracker/internal/monitor"
	"github.com/spf13/cobra"
)

var (
	monitorSession  string
	monitorInterval time.Duration
)

// completenessCmd runs the live completeness monitor
var completenessCmd = &cobra.Command{
	Use:   "completeness",
	Short: "Watch topic coverage for a session live",
	Long: `Watch how completely each planning topic has been covered, with the trend
since the previous snapshot.

Press 1-8 to show a suggested prompt for that topic; polling pauses until any
key is pressed. Press q to quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(true)
		if err != nil {
			return err
		}
		defer closeStore(store)

		ctx := cmd.Context()
		sessionID, err := internal.ResolveSession(ctx, store, monitorSession)
		if err != nil {
			return err
		}

		prompts := internal.DefaultPromptBook()
		if cfg.PromptsFile != "" {
			prompts, err = internal.LoadPromptBook(cfg.PromptsFile)
			if err != nil {
				return err
			}
		}

		restore, err := redirectLogs()
		if err != nil {
			return err
		}
		defer restore()

		m := monitor.NewCompletenessMonitor(store, sessionID, prompts)
		return monitor.RunCompleteness(ctx, m, monitorOptions(cmd))
	},
}

func monitorOptions(cmd *cobra.Command) monitor.Options {
	interval := cfg.PollInterval
	if cmd.Flags().Changed("interval") {
		interval = monitorInterval
	}
	return monitor.Options{
		Interval:  interval,
		Input:     cmd.InOrStdin(),
		Output:    cmd.OutOrStdout(),
		AltScreen: internal.IsTerminal(cmd.OutOrStdout()),
	}
}

// redirectLogs sends logs to log_file, or discards them, while a monitor owns the screen
func redirectLogs() (func(), error) {
	if cfg.LogFile == "" {
		internal.SetLogOutput(io.Discard)
		return func() { internal.SetLogOutput(os.Stderr) }, nil
	}
	closeLog, err := internal.OpenLogFile(cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return func() {
		if err := closeLog(); err != nil {
			internal.LogWarn("Failed to close log file: %v", err)
		}
	}, nil
}

func init() {
	rootCmd.AddCommand(completenessCmd)
	completenessCmd.Flags().StringVarP(&monitorSession, "session", "s", "", "Session to monitor (default: most recently active)")
	completenessCmd.Flags().DurationVar(&monitorInterval, "interval", internal.DefaultPollInterval, "Polling interval")
}
