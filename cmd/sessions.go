package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iksnae/completeness-tracker/internal"
	"github.com/spf13/cobra"
)

var (
	newDescription string
	showEvents     int
)

// sessionsCmd groups the session management commands
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List, create and describe sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known sessions, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !storeExists() {
			displaySessions(cmd.OutOrStdout(), nil, time.Now())
			return nil
		}
		store, err := openStore(true)
		if err != nil {
			return err
		}
		defer closeStore(store)

		sessions, err := store.ListSessions(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		displaySessions(cmd.OutOrStdout(), sessions, time.Now())
		return nil
	},
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new empty session and print its ID",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(false)
		if err != nil {
			return err
		}
		defer closeStore(store)

		record, err := store.CreateSession(cmd.Context(), newDescription)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), record.ID)
		return nil
	},
}

var sessionsDescribeCmd = &cobra.Command{
	Use:   "describe <session-id> <description>",
	Short: "Set the description of a session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(false)
		if err != nil {
			return err
		}
		defer closeStore(store)

		description := strings.Join(args[1:], " ")
		if err := store.DescribeSession(cmd.Context(), args[0], description); err != nil {
			return fmt.Errorf("failed to describe session: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successStyle.Render("✓"), "Updated session "+args[0])
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show ledger statistics and recent tool calls for a session",
	Long: `Show ledger statistics, current coverage and the most recent agent tool
calls for a session. Defaults to the most recently active session.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(true)
		if err != nil {
			return err
		}
		defer closeStore(store)

		var explicit string
		if len(args) == 1 {
			explicit = args[0]
		}
		ctx := cmd.Context()
		sessionID, err := internal.ResolveSession(ctx, store, explicit)
		if err != nil {
			return err
		}

		stats, err := store.Stats(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to read session: %w", err)
		}
		snapshots, err := store.ReadSnapshots(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to read snapshots: %w", err)
		}
		events, err := store.ReadToolEvents(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to read tool events: %w", err)
		}

		displaySessionDetail(cmd.OutOrStdout(), stats, internal.SummarizeCoverage(snapshots), lastEvents(events, showEvents), time.Now())
		return nil
	},
}

// storeExists reports whether the configured backend has been written to
func storeExists() bool {
	if cfg.Backend == internal.BackendSQLite {
		return cfg.Paths.DatabaseExists()
	}
	return cfg.Paths.BaseExists()
}

func lastEvents(events []internal.ToolEvent, n int) []internal.ToolEvent {
	if n >= 0 && len(events) > n {
		return events[len(events)-n:]
	}
	return events
}

func displaySessions(w io.Writer, sessions []internal.SessionRecord, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, headerStyle.Render("📋 No sessions found"))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("📋 Found %d session(s)", len(sessions))))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, titleStyle.Render("ID")+"\t"+titleStyle.Render("Created")+"\t"+titleStyle.Render("Last active")+"\t"+titleStyle.Render("Description")+"\t")
	for _, s := range sessions {
		description := s.Description
		if description == "" {
			description = "Untitled"
		}
		description = truncateRunes(description, 50)
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
			idStyle.Render(s.ID),
			dateStyle.Render(formatWhen(s.CreatedAt, now)),
			dateStyle.Render(formatWhen(s.LastActiveAt, now)),
			description,
		)
	}
	_ = tw.Flush()
}

// truncateRunes shortens s to at most limit runes, ending in "..." when cut
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

func displaySessionDetail(w io.Writer, stats internal.SessionStats, coverage []internal.TopicStatus, events []internal.ToolEvent, now time.Time) {
	fmt.Fprintln(w, sectionStyle.Render("Session "+stats.SessionID))
	fmt.Fprintf(w, "Facts: %s  Snapshots: %s  Tool calls: %s\n",
		countStyle.Render(strconv.Itoa(stats.Facts)),
		countStyle.Render(strconv.Itoa(stats.Snapshots)),
		countStyle.Render(strconv.Itoa(stats.ToolEvents)),
	)
	fmt.Fprintf(w, "Last active: %s\n", dateStyle.Render(formatWhen(stats.LastActiveAt, now)))
	if stats.Malformed > 0 {
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("⚠️  %d malformed ledger line(s) skipped", stats.Malformed)))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, infoStyle.Render("Coverage"))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, status := range coverage {
		level := "-"
		if status.Seen {
			level = status.Level.String()
		}
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", status.Topic, level, status.Trend)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)

	fmt.Fprintln(w, infoStyle.Render("Recent tool calls"))
	if len(events) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}
	for _, event := range events {
		fmt.Fprintf(w, "  %s  %-18s %s\n", dateStyle.Render(formatWhen(event.CreatedAt, now)), event.Tool, event.Summary)
	}
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsNewCmd, sessionsDescribeCmd, sessionsShowCmd)
	sessionsNewCmd.Flags().StringVarP(&newDescription, "description", "d", "", "Session description")
	sessionsShowCmd.Flags().IntVarP(&showEvents, "events", "n", 10, "Number of recent tool calls to show (-1 for all)")
}
