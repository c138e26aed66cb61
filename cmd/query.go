package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/completeness-tracker/internal"
	"github.com/spf13/cobra"
)

var (
	querySession string
	queryJSON    bool
)

// queryCmd prints every captured fact grouped by topic
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print all facts captured for a session, grouped by topic",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(true)
		if err != nil {
			return err
		}
		defer closeStore(store)

		ctx := cmd.Context()
		sessionID, err := internal.ResolveSession(ctx, store, querySession)
		if err != nil {
			return err
		}
		result, err := internal.NewQueryService(store).Query(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to query session: %w", err)
		}

		if queryJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		displayTopicFacts(cmd.OutOrStdout(), sessionID, result)
		return nil
	},
}

func displayTopicFacts(w io.Writer, sessionID string, result internal.TopicFacts) {
	if result.Count() == 0 {
		fmt.Fprintln(w, headerStyle.Render("No information recorded for session "+sessionID))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d fact(s) for session %s", result.Count(), sessionID)))
	for _, topic := range result.Topics() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render(string(topic)))
		for _, fact := range result[topic] {
			label := fact.Subtopic
			if fact.FactType != "" {
				if label != "" {
					label += "/"
				}
				label += fact.FactType
			}
			if label != "" {
				label = idStyle.Render("["+label+"]") + " "
			}
			fmt.Fprintf(w, "  %s%s %s\n", label, fact.Value, dateStyle.Render(fmt.Sprintf("(%.2f)", fact.Confidence)))
		}
	}
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&querySession, "session", "s", "", "Session to query (default: most recently active)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print JSON grouped by topic")
}
