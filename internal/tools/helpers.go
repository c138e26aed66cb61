// Package tools implements the MCP tools the planning agent calls to write
// and read a session's ledgers.
//
// Each tool is a struct holding its dependencies, with Definition returning
// the mcp.Tool schema and Handle processing one call.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iksnae/completeness-tracker/internal"
	"github.com/mark3labs/mcp-go/mcp"
)

// session holds the session a tool call applies to when the caller names none
type session struct {
	store     internal.Store
	defaultID string
}

func (s session) resolve(req mcp.CallToolRequest) (string, error) {
	id := strings.TrimSpace(req.GetString("session_id", ""))
	if id == "" {
		id = s.defaultID
	}
	if id == "" {
		return "", fmt.Errorf("no session_id given and the server has no default session")
	}
	return id, nil
}

// audit appends a tool event. Failures are logged and never fail the call.
func (s session) audit(ctx context.Context, sessionID, tool, summary string) {
	if _, err := s.store.AppendToolEvent(ctx, sessionID, tool, summary); err != nil {
		internal.LogWarn("Failed to record %s tool event for session %s: %v", tool, sessionID, err)
	}
}

// floatArg extracts an optional number argument (JSON numbers are float64)
func floatArg(req mcp.CallToolRequest, key string) (*float64, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	v, ok := raw.(float64)
	if !ok {
		return nil, fmt.Errorf("'%s' must be a number", key)
	}
	return &v, nil
}

// scoresArg decodes the scores argument, accepting an array or a JSON-encoded array
func scoresArg(req mcp.CallToolRequest) ([]scoreArg, error) {
	raw, ok := req.GetArguments()["scores"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("'scores' is required")
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("'scores' could not be read: %w", err)
		}
		data = encoded
	}

	var scores []scoreArg
	if err := json.Unmarshal(data, &scores); err != nil {
		return nil, fmt.Errorf("'scores' must be a list of {topic, level|score, reason} objects: %w", err)
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("'scores' must be a non-empty list of topic score objects")
	}
	return scores, nil
}

type scoreArg struct {
	Topic  string   `json:"topic"`
	Level  string   `json:"level"`
	Score  *float64 `json:"score"`
	Reason string   `json:"reason"`
}

func (a scoreArg) entry() (internal.ScoreEntry, error) {
	var score *int
	if a.Score != nil {
		v := int(*a.Score)
		if float64(v) != *a.Score {
			return internal.ScoreEntry{}, fmt.Errorf("score for %s must be a whole number", a.Topic)
		}
		score = &v
	}
	return internal.NewScoreEntry(a.Topic, a.Level, score, a.Reason)
}
