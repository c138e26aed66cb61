package cmd

import (
	"github.com/iksnae/completeness-tracker/internal"
	"github.com/iksnae/completeness-tracker/internal/monitor"
	"github.com/spf13/cobra"
)

// profileCmd runs the live profile viewer
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Watch the client profile for a session live",
	Long: `Show every captured fact grouped by topic and subtopic, refreshed as the
planning conversation records new information. Press q to quit.`,
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

		restore, err := redirectLogs()
		if err != nil {
			return err
		}
		defer restore()

		viewer := monitor.NewProfileViewer(store, sessionID)
		return monitor.RunProfile(ctx, viewer, monitorOptions(cmd))
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&monitorSession, "session", "s", "", "Session to view (default: most recently active)")
	profileCmd.Flags().DurationVar(&monitorInterval, "interval", internal.DefaultPollInterval, "Polling interval")
}
