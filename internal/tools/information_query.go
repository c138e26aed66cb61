package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iksnae/completeness-tracker/internal"
	"github.com/mark3labs/mcp-go/mcp"
)

// InformationQueryTool handles the information_query MCP tool.
// It returns every fact captured so far, grouped by topic.
type InformationQueryTool struct {
	session
	query *internal.QueryService
}

// NewInformationQueryTool creates an InformationQueryTool
func NewInformationQueryTool(store internal.Store, defaultSession string) *InformationQueryTool {
	return &InformationQueryTool{
		session: session{store: store, defaultID: defaultSession},
		query:   internal.NewQueryService(store),
	}
}

// Definition returns the MCP tool definition for registration.
func (t *InformationQueryTool) Definition() mcp.Tool {
	return mcp.NewTool("information_query",
		mcp.WithDescription(
			"Fetch all information recorded for the session, grouped by topic. "+
				"Use it to avoid asking the client for facts you already have.",
		),
		mcp.WithString("session_id",
			mcp.Description("Session to read (default: the server's session)"),
		),
	)
}

// Handle processes the information_query tool call.
func (t *InformationQueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := t.resolve(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := t.query.Query(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to query information: %v", err)), nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode information: %v", err)), nil
	}
	t.audit(ctx, sessionID, "information_query", fmt.Sprintf("%d facts", result.Count()))

	return mcp.NewToolResultText(string(data)), nil
}
