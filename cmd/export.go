package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iksnae/completeness-tracker/internal"
	"github.com/iksnae/completeness-tracker/internal/export"
	"github.com/spf13/cobra"
)

var (
	format        string
	outputDir     string
	exportSession string
	exportAll     bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions to file",
	Long: `Export a session's facts, snapshots and current coverage (json, jsonl, md, yaml, toml).

Exports the most recently active session by default, a specific one with
--session, or every session with --all.
Use 'completeness-tracker sessions list' to see available session IDs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		store, err := openStore(true)
		if err != nil {
			return err
		}
		defer closeStore(store)

		ctx := cmd.Context()
		sessionIDs, err := exportTargets(ctx, store)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		exported := 0
		var failed []string
		err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d session(s) to %s", len(sessionIDs), outputDir), func() error {
			for _, id := range sessionIDs {
				path := filepath.Join(outputDir, fmt.Sprintf("session_%s.%s", id, exporter.Extension()))
				if err := exportSessionFile(ctx, store, exporter, id, path); err != nil {
					if len(sessionIDs) == 1 {
						return err
					}
					failed = append(failed, id)
					internal.LogError("%v", err)
					continue
				}
				exported++
			}
			return nil
		})
		if err != nil {
			return err
		}

		if len(failed) > 0 {
			internal.PrintWarning(fmt.Sprintf("Skipped %d session(s) that could not be exported: %s", len(failed), strings.Join(failed, ", ")))
		}
		internal.PrintSuccess(fmt.Sprintf("Export complete: %d session(s) exported to %s", exported, outputDir))
		return nil
	},
}

func exportTargets(ctx context.Context, store internal.Store) ([]string, error) {
	if !exportAll {
		id, err := internal.ResolveSession(ctx, store, exportSession)
		if err != nil {
			return nil, err
		}
		return []string{id}, nil
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, &internal.SessionNotFoundError{}
	}
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	return ids, nil
}

func exportSessionFile(ctx context.Context, store internal.Store, exporter export.Exporter, sessionID, path string) error {
	doc, err := export.BuildDocument(ctx, store, sessionID)
	if err != nil {
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}

	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}
	if err := exporter.Export(doc, file); err != nil {
		_ = file.Close()
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}
	internal.LogDebug("Exported session %s to %s", sessionID, path)
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json, toml)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVarP(&exportSession, "session", "s", "", "Export a specific session by ID")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every session")
}
