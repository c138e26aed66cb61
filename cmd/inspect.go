package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/completeness-tracker/internal"
	"github.com/spf13/cobra"
)

var (
	inspectFormat     string
	inspectSampleRows int
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect the SQLite ledger database",
	Long: `Inspect the schema and contents of the SQLite ledger database.

This command provides:
  • Tables and their columns
  • Row counts
  • The most recent rows of each table

Examples:
  completeness-tracker inspect                        # Inspect <data-dir>/ledger.db
  completeness-tracker inspect --format json --sample 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectFormat != "text" && inspectFormat != "json" {
			return fmt.Errorf("unsupported format: %s (supported: text, json)", inspectFormat)
		}

		store, err := internal.OpenSQLiteStore(cfg.Paths, internal.StoreOptions{ReadOnly: true})
		if err != nil {
			return fmt.Errorf("failed to open ledger database: %w", err)
		}
		defer func() { _ = store.Close() }()

		tables, err := store.Inspect(cmd.Context(), inspectSampleRows)
		if err != nil {
			return err
		}

		if inspectFormat == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tables)
		}
		displayTables(cmd.OutOrStdout(), cfg.Paths.DatabasePath, tables)
		return nil
	},
}

func displayTables(w io.Writer, path string, tables []internal.TableInfo) {
	if len(tables) == 0 {
		fmt.Fprintln(w, "⚠️  No tables found in database")
		return
	}

	fmt.Fprintf(w, "📋 Database: %s\n", path)
	fmt.Fprintf(w, "📊 Found %d table(s)\n\n", len(tables))

	for _, table := range tables {
		fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
		fmt.Fprintf(w, "📦 Table: %s\n", table.Name)
		fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
		fmt.Fprintf(w, "📊 Rows: %d\n\n", table.Rows)

		fmt.Fprintf(w, "📐 Schema:\n")
		for _, col := range table.Columns {
			pk := ""
			if col.PrimaryKey {
				pk = " [PRIMARY KEY]"
			}
			notNull := ""
			if col.NotNull {
				notNull = " NOT NULL"
			}
			fmt.Fprintf(w, "  • %s: %s%s%s\n", col.Name, col.Type, notNull, pk)
		}

		if len(table.Sample) > 0 {
			fmt.Fprintf(w, "\n📄 Most recent rows:\n")
			for i, row := range table.Sample {
				fmt.Fprintf(w, "\n  Row %d:\n", i+1)
				for _, col := range table.Columns {
					fmt.Fprintf(w, "    %s: %s\n", col.Name, row[col.Name])
				}
			}
		}
		fmt.Fprintln(w)
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format (text, json)")
	inspectCmd.Flags().IntVar(&inspectSampleRows, "sample", 3, "Number of recent rows to show per table")
}
