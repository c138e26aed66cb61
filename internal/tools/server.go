package tools

import (
	"github.com/iksnae/completeness-tracker/internal"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

const serverInstructions = "Record each fact the client shares with the information tool, " +
	"score topic coverage with the completeness tool after each exchange, " +
	"and check information_query before asking for something you may already know."

// NewServer creates the MCP server with every tool registered.
// defaultSession is used by calls that do not pass session_id.
func NewServer(store internal.Store, defaultSession string) *server.MCPServer {
	s := server.NewMCPServer(
		"completeness-tracker",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	information := NewInformationTool(store, defaultSession)
	s.AddTool(information.Definition(), information.Handle)

	completeness := NewCompletenessTool(store, defaultSession)
	s.AddTool(completeness.Definition(), completeness.Handle)

	query := NewInformationQueryTool(store, defaultSession)
	s.AddTool(query.Definition(), query.Handle)

	return s
}
