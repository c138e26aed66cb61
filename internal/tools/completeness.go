package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/iksnae/completeness-tracker/internal"
	"github.com/mark3labs/mcp-go/mcp"
)

// CompletenessTool handles the completeness MCP tool.
// It appends one snapshot to the session's Completeness Ledger.
type CompletenessTool struct {
	session
}

// NewCompletenessTool creates a CompletenessTool
func NewCompletenessTool(store internal.Store, defaultSession string) *CompletenessTool {
	return &CompletenessTool{session{store: store, defaultID: defaultSession}}
}

// Definition returns the MCP tool definition for registration.
func (t *CompletenessTool) Definition() mcp.Tool {
	return mcp.NewTool("completeness",
		mcp.WithDescription(
			"Persist a completeness snapshot for one or more topics. "+
				"Each entry needs a topic and either a level (none, partial, mostly, complete) "+
				"or a 0-100 score; topics you leave out keep their previous coverage.",
		),
		mcp.WithArray("scores",
			mcp.Required(),
			mcp.Description("List of {topic, level?, score?, reason?} objects"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"topic":  map[string]any{"type": "string"},
					"level":  map[string]any{"type": "string", "enum": []string{"none", "partial", "mostly", "complete"}},
					"score":  map[string]any{"type": "number", "minimum": 0, "maximum": 100},
					"reason": map[string]any{"type": "string"},
				},
				"required": []string{"topic"},
			}),
		),
		mcp.WithString("session_id",
			mcp.Description("Session to write to (default: the server's session)"),
		),
	)
}

// Handle processes the completeness tool call.
func (t *CompletenessTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := t.resolve(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args, err := scoresArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	scores := make([]internal.ScoreEntry, 0, len(args))
	topics := make([]string, 0, len(args))
	for _, arg := range args {
		entry, err := arg.entry()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		scores = append(scores, entry)
		topics = append(topics, string(entry.Topic))
	}

	if _, err := t.store.AppendSnapshot(ctx, sessionID, scores); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to record completeness: %v", err)), nil
	}
	summary := strings.Join(topics, ", ")
	t.audit(ctx, sessionID, "completeness", summary)

	return mcp.NewToolResultText("Completeness snapshot stored for topics: " + summary), nil
}
