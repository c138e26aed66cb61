package cmd

import (
	"fmt"

	"github.com/iksnae/completeness-tracker/internal"
	"github.com/iksnae/completeness-tracker/internal/tools"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var (
	serveSession     string
	serveDescription string
)

// serveCmd runs the MCP tool server the planning agent writes through
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP tool server on stdio",
	Long: `Run an MCP server on stdin/stdout exposing the information, completeness
and information_query tools to a planning agent.

Without --session a new session is created and used for calls that do not
name one. Logs go to stderr; stdout carries the protocol.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(false)
		if err != nil {
			return err
		}
		defer closeStore(store)

		sessionID := serveSession
		if sessionID == "" {
			record, err := store.CreateSession(cmd.Context(), serveDescription)
			if err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}
			sessionID = record.ID
		}
		internal.LogInfo("Serving MCP tools for session %s (%s backend, %s)", sessionID, cfg.Backend, cfg.Paths.BaseDir)

		s := tools.NewServer(store, sessionID)
		if err := server.ServeStdio(s); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveSession, "session", "s", "", "Default session for tool calls (default: a new session)")
	serveCmd.Flags().StringVarP(&serveDescription, "description", "d", "", "Description for the new session")
}
