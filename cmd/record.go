package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iksnae/completeness-tracker/internal"
	"github.com/spf13/cobra"
)

var (
	recordSession  string
	factTopic      string
	factSubtopic   string
	factValue      string
	factType       string
	factConfidence float64
)

// recordCmd writes ledger records from the command line, for scripted writers
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Append facts or completeness snapshots to a session",
	Long: `Append records to a session's ledgers without going through the MCP server.

The session is created on first write. Without --session the most recently
active session is used.`,
}

var recordFactCmd = &cobra.Command{
	Use:   "fact",
	Short: "Append one fact to the information ledger",
	Example: `  completeness-tracker record fact --topic income_cash_flow --subtopic pension \
    --fact-type monthly_amount --value "$2,400/month"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(false)
		if err != nil {
			return err
		}
		defer closeStore(store)

		sessionID, err := writerSession(cmd, store)
		if err != nil {
			return err
		}

		in := internal.FactInput{
			Topic:    factTopic,
			Subtopic: factSubtopic,
			Value:    factValue,
			FactType: factType,
		}
		if cmd.Flags().Changed("confidence") {
			in.Confidence = &factConfidence
		}

		fact, err := store.AppendFact(cmd.Context(), sessionID, in)
		if err != nil {
			return fmt.Errorf("failed to record fact: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Recorded information for topic '%s' in session %s\n",
			successStyle.Render("✓"), fact.Topic, sessionID)
		return nil
	},
}

var recordSnapshotCmd = &cobra.Command{
	Use:   "snapshot <topic>=<level|score>[:reason]...",
	Short: "Append one completeness snapshot",
	Long: `Append one completeness snapshot. Each argument scores one topic with a
level (none, partial, mostly, complete) or a 0-100 score, optionally
followed by a reason. Topics left out keep their previous coverage.`,
	Example: `  completeness-tracker record snapshot income_cash_flow=mostly:"pension known" estate_planning=10`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scores := make([]internal.ScoreEntry, 0, len(args))
		for _, arg := range args {
			entry, err := parseScoreArg(arg)
			if err != nil {
				return err
			}
			scores = append(scores, entry)
		}

		store, err := openStore(false)
		if err != nil {
			return err
		}
		defer closeStore(store)

		sessionID, err := writerSession(cmd, store)
		if err != nil {
			return err
		}
		snapshot, err := store.AppendSnapshot(cmd.Context(), sessionID, scores)
		if err != nil {
			return fmt.Errorf("failed to record snapshot: %w", err)
		}

		topics := make([]string, len(snapshot.Scores))
		for i, entry := range snapshot.Scores {
			topics[i] = string(entry.Topic)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Completeness snapshot stored for topics: %s\n",
			successStyle.Render("✓"), strings.Join(topics, ", "))
		return nil
	},
}

// writerSession returns --session, or the most recently active session
func writerSession(cmd *cobra.Command, store internal.Store) (string, error) {
	if recordSession != "" {
		return recordSession, nil
	}
	record, err := store.MostRecentSession(cmd.Context())
	if err != nil {
		if internal.IsNotFound(err) {
			return "", fmt.Errorf("no sessions yet: pass --session or run 'completeness-tracker sessions new'")
		}
		return "", err
	}
	return record.ID, nil
}

// parseScoreArg parses topic=level[:reason] or topic=score[:reason]
func parseScoreArg(arg string) (internal.ScoreEntry, error) {
	topic, rest, ok := strings.Cut(arg, "=")
	if !ok {
		return internal.ScoreEntry{}, &internal.ValidationError{
			Field: "scores",
			Msg:   fmt.Sprintf("%q must look like topic=level or topic=score", arg),
		}
	}
	value, reason, _ := strings.Cut(rest, ":")
	value = strings.TrimSpace(value)

	if n, err := strconv.Atoi(value); err == nil {
		return internal.NewScoreEntry(topic, "", &n, strings.TrimSpace(reason))
	}
	return internal.NewScoreEntry(topic, value, nil, strings.TrimSpace(reason))
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.AddCommand(recordFactCmd, recordSnapshotCmd)
	recordCmd.PersistentFlags().StringVarP(&recordSession, "session", "s", "", "Session to write to (default: most recently active)")

	recordFactCmd.Flags().StringVar(&factTopic, "topic", "", "Topic the fact belongs to (required)")
	recordFactCmd.Flags().StringVar(&factSubtopic, "subtopic", "", "Grouping within the topic")
	recordFactCmd.Flags().StringVar(&factValue, "value", "", "The fact itself (required)")
	recordFactCmd.Flags().StringVar(&factType, "fact-type", "", "Short label for the kind of fact")
	recordFactCmd.Flags().Float64Var(&factConfidence, "confidence", internal.DefaultConfidence, "Confidence between 0.0 and 1.0")
	_ = recordFactCmd.MarkFlagRequired("topic")
	_ = recordFactCmd.MarkFlagRequired("value")
}
