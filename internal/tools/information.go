package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/iksnae/completeness-tracker/internal"
	"github.com/mark3labs/mcp-go/mcp"
)

// InformationTool handles the information MCP tool.
// It appends one fact to the session's Information Ledger.
type InformationTool struct {
	session
}

// NewInformationTool creates an InformationTool
func NewInformationTool(store internal.Store, defaultSession string) *InformationTool {
	return &InformationTool{session{store: store, defaultID: defaultSession}}
}

// Definition returns the MCP tool definition for registration.
func (t *InformationTool) Definition() mcp.Tool {
	return mcp.NewTool("information",
		mcp.WithDescription(
			"Persist a new piece of retirement-planning information for this session. "+
				"Call once per fact as soon as the client shares it.",
		),
		mcp.WithString("topic",
			mcp.Required(),
			mcp.Description("One of: income_cash_flow, healthcare_medicare, housing_geography, tax_efficiency_rmds, "+
				"longevity_inflation, long_term_care, lifestyle_purpose, estate_planning"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("The fact itself, in plain language"),
		),
		mcp.WithString("subtopic",
			mcp.Description("Free-form grouping within the topic, e.g. pension or social_security"),
		),
		mcp.WithString("fact_type",
			mcp.Description("Short label for the kind of fact, e.g. goal_age or monthly_amount"),
		),
		mcp.WithNumber("confidence",
			mcp.Description("How sure you are about the fact, 0.0 to 1.0 (default 0.9)"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session to write to (default: the server's session)"),
		),
	)
}

// Handle processes the information tool call.
func (t *InformationTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := t.resolve(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	confidence, err := floatArg(req, "confidence")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := internal.FactInput{
		Topic:      req.GetString("topic", ""),
		Subtopic:   strings.TrimSpace(req.GetString("subtopic", "")),
		Value:      strings.TrimSpace(req.GetString("value", "")),
		FactType:   strings.TrimSpace(req.GetString("fact_type", "")),
		Confidence: confidence,
	}
	fact, err := t.store.AppendFact(ctx, sessionID, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to record information: %v", err)), nil
	}

	summary := string(fact.Topic)
	if fact.Subtopic != "" {
		summary += "/" + fact.Subtopic
	}
	t.audit(ctx, sessionID, "information", summary)

	return mcp.NewToolResultText(fmt.Sprintf("Recorded information for topic '%s'.", fact.Topic)), nil
}
