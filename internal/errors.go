package internal

import (
	"errors"
	"fmt"
)

// SessionNotFoundError is returned by pure reads against an unknown session
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	if e.SessionID == "" {
		return "no session found"
	}
	return fmt.Sprintf("session %s not found", e.SessionID)
}

// IsNotFound reports whether err is (or wraps) a SessionNotFoundError
func IsNotFound(err error) bool {
	var notFound *SessionNotFoundError
	return errors.As(err, &notFound)
}

// StorageError represents errors accessing ledger storage
type StorageError struct {
	Path string
	Op   string // "open", "read", "append", "query"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// MalformedRecordError represents a ledger record that could not be decoded
type MalformedRecordError struct {
	Ledger string // "information", "completeness", "tools"
	Line   int
	Err    error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record [%s] line %d: %v", e.Ledger, e.Line, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// ValidationError represents a rejected write
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
