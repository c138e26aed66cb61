package internal

import (
	"context"
	"strings"
)

// SessionLocator finds sessions for readers that were not told which one to use
type SessionLocator interface {
	SessionExists(ctx context.Context, sessionID string) (bool, error)
	MostRecentSession(ctx context.Context) (SessionRecord, error)
}

// ResolveSession picks the session a reader should follow: the explicit one,
// which must exist, or else the most recently active session.
func ResolveSession(ctx context.Context, locator SessionLocator, explicit string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		exists, err := locator.SessionExists(ctx, explicit)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", &SessionNotFoundError{SessionID: explicit}
		}
		return explicit, nil
	}

	record, err := locator.MostRecentSession(ctx)
	if err != nil {
		return "", err
	}
	LogDebug("Defaulting to most recently active session %s", record.ID)
	return record.ID, nil
}
