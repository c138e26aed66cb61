package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection
var openDB = sql.Open

// sqliteTimeFormat is fixed-width so that timestamps sort as text
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		created_at  TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS facts (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT    NOT NULL,
		session_id TEXT    NOT NULL REFERENCES sessions(id),
		topic      TEXT    NOT NULL,
		subtopic   TEXT    NOT NULL DEFAULT '',
		fact_type  TEXT    NOT NULL DEFAULT '',
		value      TEXT    NOT NULL,
		confidence REAL    NOT NULL,
		created_at TEXT    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_facts_session ON facts(session_id, seq);

	CREATE TABLE IF NOT EXISTS snapshots (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT    NOT NULL REFERENCES sessions(id),
		scores     TEXT    NOT NULL,
		created_at TEXT    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_session ON snapshots(session_id, seq);

	CREATE TABLE IF NOT EXISTS tool_events (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT    NOT NULL REFERENCES sessions(id),
		tool       TEXT    NOT NULL,
		summary    TEXT    NOT NULL DEFAULT '',
		created_at TEXT    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tool_events_session ON tool_events(session_id, seq);
`

const sessionSelect = `
	SELECT s.id, s.created_at, s.description,
		max(s.created_at,
			COALESCE((SELECT MAX(created_at) FROM facts WHERE session_id = s.id), s.created_at),
			COALESCE((SELECT MAX(created_at) FROM snapshots WHERE session_id = s.id), s.created_at),
			COALESCE((SELECT MAX(created_at) FROM tool_events WHERE session_id = s.id), s.created_at))
	FROM sessions s`

// SQLiteStore keeps the ledgers as tables of a single SQLite database
type SQLiteStore struct {
	db       *sql.DB
	path     string
	readOnly bool
	now      func() time.Time
	newID    func() string
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens (and for writers, creates and migrates) <data>/ledger.db.
// Readers get a query_only connection.
func OpenSQLiteStore(paths DataPaths, opts StoreOptions) (*SQLiteStore, error) {
	path := paths.DatabasePath
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}

	if opts.ReadOnly {
		if !paths.DatabaseExists() {
			return nil, &StorageError{Path: path, Op: "open", Err: os.ErrNotExist}
		}
		pragmas = []string{"PRAGMA busy_timeout = 5000", "PRAGMA query_only = ON"}
	} else if err := os.MkdirAll(paths.BaseDir, sessionDirMode); err != nil {
		return nil, &StorageError{Path: paths.BaseDir, Op: "create", Err: err}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, &StorageError{Path: path, Op: "open", Err: fmt.Errorf("pragma %q: %w", p, err)}
		}
	}

	if !opts.ReadOnly {
		if _, err := db.Exec(sqliteSchema); err != nil {
			db.Close()
			return nil, &StorageError{Path: path, Op: "migrate", Err: err}
		}
	}

	return &SQLiteStore{
		db:       db,
		path:     path,
		readOnly: opts.ReadOnly,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

// AppendFact implements Store
func (s *SQLiteStore) AppendFact(ctx context.Context, sessionID string, in FactInput) (Fact, error) {
	topic, confidence, err := in.Validate()
	if err != nil {
		return Fact{}, err
	}

	fact := Fact{
		ID:         s.newID(),
		SessionID:  sessionID,
		Topic:      topic,
		Subtopic:   in.Subtopic,
		FactType:   in.FactType,
		Value:      in.Value,
		Confidence: confidence,
		CreatedAt:  s.now().UTC(),
	}
	err = s.inSession(ctx, sessionID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO facts (id, session_id, topic, subtopic, fact_type, value, confidence, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			fact.ID, sessionID, string(topic), fact.Subtopic, fact.FactType, fact.Value, confidence, formatTime(fact.CreatedAt))
		return err
	})
	if err != nil {
		return Fact{}, err
	}
	return fact, nil
}

// AppendSnapshot implements Store
func (s *SQLiteStore) AppendSnapshot(ctx context.Context, sessionID string, scores []ScoreEntry) (Snapshot, error) {
	if err := validateScores(scores); err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{
		SessionID: sessionID,
		Scores:    append([]ScoreEntry(nil), scores...),
		CreatedAt: s.now().UTC(),
	}
	encoded, err := json.Marshal(snapshot.Scores)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to marshal scores: %w", err)
	}
	err = s.inSession(ctx, sessionID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO snapshots (session_id, scores, created_at) VALUES (?, ?, ?)`,
			sessionID, string(encoded), formatTime(snapshot.CreatedAt))
		return err
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

// AppendToolEvent implements Store
func (s *SQLiteStore) AppendToolEvent(ctx context.Context, sessionID, tool, summary string) (ToolEvent, error) {
	event := ToolEvent{SessionID: sessionID, Tool: tool, Summary: summary, CreatedAt: s.now().UTC()}
	err := s.inSession(ctx, sessionID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tool_events (session_id, tool, summary, created_at) VALUES (?, ?, ?, ?)`,
			sessionID, tool, summary, formatTime(event.CreatedAt))
		return err
	})
	if err != nil {
		return ToolEvent{}, err
	}
	return event, nil
}

// ReadFacts implements Store
func (s *SQLiteStore) ReadFacts(ctx context.Context, sessionID string) ([]Fact, error) {
	facts, _, err := s.readFacts(ctx, sessionID)
	return facts, err
}

func (s *SQLiteStore) readFacts(ctx context.Context, sessionID string) ([]Fact, int, error) {
	if err := s.checkReadable(ctx, sessionID); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, topic, subtopic, fact_type, value, confidence, created_at
		 FROM facts WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, 0, &StorageError{Path: s.path, Op: "query", Err: err}
	}
	defer rows.Close()

	facts := []Fact{}
	malformed := 0
	for rows.Next() {
		var (
			rowID     int64
			fact      Fact
			topic     string
			createdAt string
		)
		if err := rows.Scan(&rowID, &fact.ID, &topic, &fact.Subtopic, &fact.FactType, &fact.Value, &fact.Confidence, &createdAt); err != nil {
			return nil, 0, &StorageError{Path: s.path, Op: "scan", Err: err}
		}
		fact.Topic = Topic(topic)
		fact.SessionID = sessionID
		if !fact.Topic.IsValid() {
			malformed++
			LogWarn("%v", &MalformedRecordError{Ledger: informationLedger, Line: int(rowID), Err: fmt.Errorf("unknown topic %q", topic)})
			continue
		}
		fact.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			malformed++
			LogWarn("%v", &MalformedRecordError{Ledger: informationLedger, Line: int(rowID), Err: err})
			continue
		}
		fact.Seq = len(facts) + 1
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &StorageError{Path: s.path, Op: "query", Err: err}
	}
	return facts, malformed, nil
}

// ReadSnapshots implements Store
func (s *SQLiteStore) ReadSnapshots(ctx context.Context, sessionID string) ([]Snapshot, error) {
	snapshots, _, err := s.readSnapshots(ctx, sessionID)
	return snapshots, err
}

func (s *SQLiteStore) readSnapshots(ctx context.Context, sessionID string) ([]Snapshot, int, error) {
	if err := s.checkReadable(ctx, sessionID); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, scores, created_at FROM snapshots WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, 0, &StorageError{Path: s.path, Op: "query", Err: err}
	}
	defer rows.Close()

	snapshots := []Snapshot{}
	malformed := 0
	for rows.Next() {
		var (
			rowID     int64
			encoded   string
			createdAt string
		)
		if err := rows.Scan(&rowID, &encoded, &createdAt); err != nil {
			return nil, 0, &StorageError{Path: s.path, Op: "scan", Err: err}
		}
		snapshot := Snapshot{SessionID: sessionID}
		err := json.Unmarshal([]byte(encoded), &snapshot.Scores)
		if err == nil && len(snapshot.Scores) == 0 {
			err = errors.New("snapshot has no scores")
		}
		if err == nil {
			snapshot.CreatedAt, err = parseTime(createdAt)
		}
		if err != nil {
			malformed++
			LogWarn("%v", &MalformedRecordError{Ledger: completenessLedger, Line: int(rowID), Err: err})
			continue
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &StorageError{Path: s.path, Op: "query", Err: err}
	}
	return snapshots, malformed, nil
}

// ReadToolEvents implements Store
func (s *SQLiteStore) ReadToolEvents(ctx context.Context, sessionID string) ([]ToolEvent, error) {
	if err := s.checkReadable(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tool, summary, created_at FROM tool_events WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "query", Err: err}
	}
	defer rows.Close()

	events := []ToolEvent{}
	for rows.Next() {
		event := ToolEvent{SessionID: sessionID}
		var createdAt string
		if err := rows.Scan(&event.Tool, &event.Summary, &createdAt); err != nil {
			return nil, &StorageError{Path: s.path, Op: "scan", Err: err}
		}
		event.CreatedAt, _ = parseTime(createdAt)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Path: s.path, Op: "query", Err: err}
	}
	return events, nil
}

// CreateSession implements Store
func (s *SQLiteStore) CreateSession(ctx context.Context, description string) (SessionRecord, error) {
	if s.readOnly {
		return SessionRecord{}, &StorageError{Path: s.path, Op: "create", Err: errReadOnly}
	}
	record := SessionRecord{ID: s.newID(), CreatedAt: s.now().UTC(), Description: description}
	record.LastActiveAt = record.CreatedAt
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, description) VALUES (?, ?, ?)`,
		record.ID, formatTime(record.CreatedAt), description)
	if err != nil {
		return SessionRecord{}, &StorageError{Path: s.path, Op: "create", Err: err}
	}
	LogInfo("Created session %s", record.ID)
	return record, nil
}

// DescribeSession implements Store
func (s *SQLiteStore) DescribeSession(ctx context.Context, sessionID, description string) error {
	if s.readOnly {
		return &StorageError{Path: s.path, Op: "write", Err: errReadOnly}
	}
	result, err := s.db.ExecContext(ctx, `UPDATE sessions SET description = ? WHERE id = ?`, description, sessionID)
	if err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	n, err := result.RowsAffected()
	if err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	if n == 0 {
		return &SessionNotFoundError{SessionID: sessionID}
	}
	return nil
}

// SessionExists implements Store
func (s *SQLiteStore) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&n)
	if err != nil {
		return false, &StorageError{Path: s.path, Op: "query", Err: err}
	}
	return n > 0, nil
}

// ListSessions implements Store. Sessions are ordered by creation time.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, sessionSelect+` ORDER BY s.created_at, s.id`)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "query", Err: err}
	}
	defer rows.Close()

	records := []SessionRecord{}
	for rows.Next() {
		var record SessionRecord
		var createdAt, lastActive string
		if err := rows.Scan(&record.ID, &createdAt, &record.Description, &lastActive); err != nil {
			return nil, &StorageError{Path: s.path, Op: "scan", Err: err}
		}
		record.CreatedAt, _ = parseTime(createdAt)
		record.LastActiveAt, _ = parseTime(lastActive)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Path: s.path, Op: "query", Err: err}
	}
	return records, nil
}

// MostRecentSession implements Store
func (s *SQLiteStore) MostRecentSession(ctx context.Context) (SessionRecord, error) {
	records, err := s.ListSessions(ctx)
	if err != nil {
		return SessionRecord{}, err
	}
	return mostRecent(records)
}

// Stats implements Store
func (s *SQLiteStore) Stats(ctx context.Context, sessionID string) (SessionStats, error) {
	facts, badFacts, err := s.readFacts(ctx, sessionID)
	if err != nil {
		return SessionStats{}, err
	}
	snapshots, badSnapshots, err := s.readSnapshots(ctx, sessionID)
	if err != nil {
		return SessionStats{}, err
	}

	stats := SessionStats{
		SessionID: sessionID,
		Facts:     len(facts),
		Snapshots: len(snapshots),
		Malformed: badFacts + badSnapshots,
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tool_events WHERE session_id = ?`, sessionID).Scan(&stats.ToolEvents); err != nil {
		return SessionStats{}, &StorageError{Path: s.path, Op: "query", Err: err}
	}

	var lastActive string
	err = s.db.QueryRowContext(ctx, sessionSelect+` WHERE s.id = ?`, sessionID).Scan(new(string), new(string), new(string), &lastActive)
	if err != nil {
		return SessionStats{}, &StorageError{Path: s.path, Op: "query", Err: err}
	}
	stats.LastActiveAt, _ = parseTime(lastActive)
	return stats, nil
}

// Close implements Store
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) checkReadable(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	exists, err := s.SessionExists(ctx, sessionID)
	if err != nil {
		return err
	}
	if !exists {
		return &SessionNotFoundError{SessionID: sessionID}
	}
	return nil
}

// inSession runs insert inside a transaction that first creates the session row if needed
func (s *SQLiteStore) inSession(ctx context.Context, sessionID string, insert func(*sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	if s.readOnly {
		return &StorageError{Path: s.path, Op: "append", Err: errReadOnly}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Path: s.path, Op: "append", Err: err}
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, created_at, description) VALUES (?, ?, '')`,
		sessionID, formatTime(s.now()))
	if err != nil {
		return &StorageError{Path: s.path, Op: "append", Err: err}
	}
	if err := insert(tx); err != nil {
		return &StorageError{Path: s.path, Op: "append", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Path: s.path, Op: "append", Err: err}
	}

	if n, _ := result.RowsAffected(); n > 0 {
		LogInfo("Created session %s on first append", sessionID)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeFormat)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeFormat, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return t, nil
}
