package internal

import (
	"context"
	"fmt"
	"strings"
)

// Backend selects the Store implementation
type Backend string

const (
	BackendJSONL  Backend = "jsonl"
	BackendSQLite Backend = "sqlite"
)

// ParseBackend validates a backend name
func ParseBackend(raw string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(raw))) {
	case "", BackendJSONL:
		return BackendJSONL, nil
	case BackendSQLite:
		return BackendSQLite, nil
	default:
		return "", &ValidationError{Field: "backend", Msg: fmt.Sprintf("unknown backend %q, expected jsonl or sqlite", raw)}
	}
}

// Store is the per-session ledger store. The agent is its only writer;
// monitors and the query service only read.
type Store interface {
	// AppendFact records one fact, creating the session if needed
	AppendFact(ctx context.Context, sessionID string, in FactInput) (Fact, error)
	// AppendSnapshot records one completeness snapshot, creating the session if needed
	AppendSnapshot(ctx context.Context, sessionID string, scores []ScoreEntry) (Snapshot, error)
	AppendToolEvent(ctx context.Context, sessionID, tool, summary string) (ToolEvent, error)

	// ReadFacts returns the full Information Ledger in insertion order
	ReadFacts(ctx context.Context, sessionID string) ([]Fact, error)
	// ReadSnapshots returns the full Completeness Ledger in insertion order
	ReadSnapshots(ctx context.Context, sessionID string) ([]Snapshot, error)
	ReadToolEvents(ctx context.Context, sessionID string) ([]ToolEvent, error)

	CreateSession(ctx context.Context, description string) (SessionRecord, error)
	DescribeSession(ctx context.Context, sessionID, description string) error
	SessionExists(ctx context.Context, sessionID string) (bool, error)
	ListSessions(ctx context.Context) ([]SessionRecord, error)
	// MostRecentSession returns the session with the latest ledger activity
	MostRecentSession(ctx context.Context) (SessionRecord, error)
	Stats(ctx context.Context, sessionID string) (SessionStats, error)

	Close() error
}

// StoreOptions tunes how a Store is opened
type StoreOptions struct {
	// ReadOnly opens the store for readers such as the monitors
	ReadOnly bool
}

// OpenStore opens the configured backend rooted at paths
func OpenStore(paths DataPaths, backend Backend, opts StoreOptions) (Store, error) {
	switch backend {
	case BackendSQLite:
		return OpenSQLiteStore(paths, opts)
	case BackendJSONL, "":
		return NewFileStore(paths, opts), nil
	default:
		return nil, &ValidationError{Field: "backend", Msg: fmt.Sprintf("unknown backend %q", backend)}
	}
}

// validateScores checks a snapshot before it is written
func validateScores(scores []ScoreEntry) error {
	if len(scores) == 0 {
		return &ValidationError{Field: "scores", Msg: "a snapshot needs at least one score"}
	}
	seen := make(map[Topic]bool, len(scores))
	for _, entry := range scores {
		if !entry.Topic.IsValid() {
			return &ValidationError{Field: "topic", Msg: fmt.Sprintf("invalid topic %q", entry.Topic)}
		}
		if entry.Level < LevelNone || entry.Level > LevelComplete {
			return &ValidationError{Field: "level", Msg: fmt.Sprintf("invalid level %d for %s", int(entry.Level), entry.Topic)}
		}
		if entry.Score != nil && (*entry.Score < 0 || *entry.Score > 100) {
			return &ValidationError{Field: "score", Msg: fmt.Sprintf("score %d for %s is outside 0-100", *entry.Score, entry.Topic)}
		}
		if seen[entry.Topic] {
			return &ValidationError{Field: "scores", Msg: fmt.Sprintf("topic %s appears more than once", entry.Topic)}
		}
		seen[entry.Topic] = true
	}
	return nil
}

// validateSessionID rejects identifiers that cannot name a session
func validateSessionID(sessionID string) error {
	if !validSessionID(sessionID) {
		return &ValidationError{Field: "session", Msg: fmt.Sprintf("invalid session id %q", sessionID)}
	}
	return nil
}
