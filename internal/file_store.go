package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	informationLedger  = "information"
	completenessLedger = "completeness"
	toolsLedger        = "tools"

	ledgerFileMode = 0o644
	sessionDirMode = 0o755
)

var errReadOnly = errors.New("store is opened read-only")

// FileStore keeps each session's ledgers as JSON Lines files:
// <data>/sessions/<id>/{information,completeness,tools}.jsonl
type FileStore struct {
	paths    DataPaths
	index    *SessionIndex
	readOnly bool
	now      func() time.Time
	newID    func() string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a JSONL-backed store. Nothing is created on disk until the first write.
func NewFileStore(paths DataPaths, opts StoreOptions) *FileStore {
	return &FileStore{
		paths:    paths,
		index:    NewSessionIndex(paths.IndexPath),
		readOnly: opts.ReadOnly,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (s *FileStore) ledgerPath(sessionID, ledger string) string {
	return filepath.Join(s.paths.SessionDir(sessionID), ledger+".jsonl")
}

// AppendFact implements Store
func (s *FileStore) AppendFact(ctx context.Context, sessionID string, in FactInput) (Fact, error) {
	if err := ctx.Err(); err != nil {
		return Fact{}, err
	}
	topic, confidence, err := in.Validate()
	if err != nil {
		return Fact{}, err
	}
	if err := s.ensureSession(sessionID); err != nil {
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
	if err := appendLine(s.ledgerPath(sessionID, informationLedger), fact); err != nil {
		return Fact{}, err
	}

	LogDebug("Appended fact %s to session %s (%s)", fact.ID, sessionID, topic)
	return fact, nil
}

// AppendSnapshot implements Store
func (s *FileStore) AppendSnapshot(ctx context.Context, sessionID string, scores []ScoreEntry) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if err := validateScores(scores); err != nil {
		return Snapshot{}, err
	}
	if err := s.ensureSession(sessionID); err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{
		SessionID: sessionID,
		Scores:    append([]ScoreEntry(nil), scores...),
		CreatedAt: s.now().UTC(),
	}
	if err := appendLine(s.ledgerPath(sessionID, completenessLedger), snapshot); err != nil {
		return Snapshot{}, err
	}

	LogDebug("Appended snapshot with %d scores to session %s", len(scores), sessionID)
	return snapshot, nil
}

// AppendToolEvent implements Store
func (s *FileStore) AppendToolEvent(ctx context.Context, sessionID, tool, summary string) (ToolEvent, error) {
	if err := ctx.Err(); err != nil {
		return ToolEvent{}, err
	}
	if err := s.ensureSession(sessionID); err != nil {
		return ToolEvent{}, err
	}

	event := ToolEvent{SessionID: sessionID, Tool: tool, Summary: summary, CreatedAt: s.now().UTC()}
	if err := appendLine(s.ledgerPath(sessionID, toolsLedger), event); err != nil {
		return ToolEvent{}, err
	}
	return event, nil
}

// ReadFacts implements Store
func (s *FileStore) ReadFacts(ctx context.Context, sessionID string) ([]Fact, error) {
	if err := s.checkReadable(ctx, sessionID); err != nil {
		return nil, err
	}
	facts, _, err := readLedger(s.ledgerPath(sessionID, informationLedger), informationLedger, decodeFact)
	if err != nil {
		return nil, err
	}
	for i := range facts {
		facts[i].Seq = i + 1
	}
	return facts, nil
}

// ReadSnapshots implements Store
func (s *FileStore) ReadSnapshots(ctx context.Context, sessionID string) ([]Snapshot, error) {
	if err := s.checkReadable(ctx, sessionID); err != nil {
		return nil, err
	}
	snapshots, _, err := readLedger(s.ledgerPath(sessionID, completenessLedger), completenessLedger, decodeSnapshot)
	return snapshots, err
}

// ReadToolEvents implements Store
func (s *FileStore) ReadToolEvents(ctx context.Context, sessionID string) ([]ToolEvent, error) {
	if err := s.checkReadable(ctx, sessionID); err != nil {
		return nil, err
	}
	events, _, err := readLedger(s.ledgerPath(sessionID, toolsLedger), toolsLedger, decodeToolEvent)
	return events, err
}

// CreateSession implements Store
func (s *FileStore) CreateSession(ctx context.Context, description string) (SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return SessionRecord{}, err
	}
	if s.readOnly {
		return SessionRecord{}, &StorageError{Path: s.paths.SessionsDir, Op: "create", Err: errReadOnly}
	}

	id := s.newID()
	dir := s.paths.SessionDir(id)
	if err := os.MkdirAll(dir, sessionDirMode); err != nil {
		return SessionRecord{}, &StorageError{Path: dir, Op: "create", Err: err}
	}
	entry, err := s.index.Ensure(id, s.now(), description)
	if err != nil {
		return SessionRecord{}, err
	}

	LogInfo("Created session %s", id)
	return SessionRecord{ID: id, CreatedAt: entry.CreatedAt, Description: entry.Description, LastActiveAt: entry.CreatedAt}, nil
}

// DescribeSession implements Store
func (s *FileStore) DescribeSession(ctx context.Context, sessionID, description string) error {
	if err := s.checkReadable(ctx, sessionID); err != nil {
		return err
	}
	if s.readOnly {
		return &StorageError{Path: s.index.Path(), Op: "write", Err: errReadOnly}
	}
	found, err := s.index.SetDescription(sessionID, description)
	if err != nil {
		return err
	}
	if !found {
		// Directory created by another writer before the index entry existed.
		_, err = s.index.Ensure(sessionID, s.dirCreatedAt(sessionID), description)
	}
	return err
}

// SessionExists implements Store
func (s *FileStore) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !validSessionID(sessionID) {
		return false, nil
	}
	info, err := os.Stat(s.paths.SessionDir(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, &StorageError{Path: s.paths.SessionDir(sessionID), Op: "stat", Err: err}
	}
	return info.IsDir(), nil
}

// ListSessions implements Store. Sessions are ordered by creation time.
func (s *FileStore) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, err := s.paths.FindSessionDirs()
	if err != nil {
		return nil, err
	}
	index, err := s.index.Load()
	if err != nil {
		return nil, err
	}
	entries := make(map[string]IndexEntry, len(index.Sessions))
	for _, entry := range index.Sessions {
		entries[entry.ID] = entry
	}

	records := make([]SessionRecord, 0, len(ids))
	for _, id := range ids {
		record := SessionRecord{ID: id}
		if entry, ok := entries[id]; ok {
			record.CreatedAt = entry.CreatedAt
			record.Description = entry.Description
		} else {
			record.CreatedAt = s.dirCreatedAt(id)
		}
		record.LastActiveAt = s.lastActivity(id, record.CreatedAt)
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// MostRecentSession implements Store
func (s *FileStore) MostRecentSession(ctx context.Context) (SessionRecord, error) {
	records, err := s.ListSessions(ctx)
	if err != nil {
		return SessionRecord{}, err
	}
	return mostRecent(records)
}

// Stats implements Store
func (s *FileStore) Stats(ctx context.Context, sessionID string) (SessionStats, error) {
	if err := s.checkReadable(ctx, sessionID); err != nil {
		return SessionStats{}, err
	}

	stats := SessionStats{SessionID: sessionID}
	facts, bad, err := readLedger(s.ledgerPath(sessionID, informationLedger), informationLedger, decodeFact)
	if err != nil {
		return SessionStats{}, err
	}
	stats.Facts, stats.Malformed = len(facts), bad

	snapshots, bad, err := readLedger(s.ledgerPath(sessionID, completenessLedger), completenessLedger, decodeSnapshot)
	if err != nil {
		return SessionStats{}, err
	}
	stats.Snapshots, stats.Malformed = len(snapshots), stats.Malformed+bad

	events, bad, err := readLedger(s.ledgerPath(sessionID, toolsLedger), toolsLedger, decodeToolEvent)
	if err != nil {
		return SessionStats{}, err
	}
	stats.ToolEvents, stats.Malformed = len(events), stats.Malformed+bad

	stats.LastActiveAt = s.lastActivity(sessionID, s.dirCreatedAt(sessionID))
	return stats, nil
}

// Close implements Store
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) checkReadable(ctx context.Context, sessionID string) error {
	exists, err := s.SessionExists(ctx, sessionID)
	if err != nil {
		return err
	}
	if !exists {
		return &SessionNotFoundError{SessionID: sessionID}
	}
	return nil
}

func (s *FileStore) ensureSession(sessionID string) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	dir := s.paths.SessionDir(sessionID)
	if s.readOnly {
		return &StorageError{Path: dir, Op: "append", Err: errReadOnly}
	}
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, sessionDirMode); err != nil {
		return &StorageError{Path: dir, Op: "create", Err: err}
	}
	if _, err := s.index.Ensure(sessionID, s.now(), ""); err != nil {
		return err
	}
	LogInfo("Created session %s on first append", sessionID)
	return nil
}

func (s *FileStore) dirCreatedAt(sessionID string) time.Time {
	info, err := os.Stat(s.paths.SessionDir(sessionID))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime().UTC()
}

// lastActivity is the newest ledger modification time, or fallback when nothing was written
func (s *FileStore) lastActivity(sessionID string, fallback time.Time) time.Time {
	latest := fallback
	for _, ledger := range []string{informationLedger, completenessLedger, toolsLedger} {
		info, err := os.Stat(s.ledgerPath(sessionID, ledger))
		if err != nil {
			continue
		}
		if mod := info.ModTime().UTC(); mod.After(latest) {
			latest = mod
		}
	}
	return latest
}

// mostRecent picks the record with the latest activity
func mostRecent(records []SessionRecord) (SessionRecord, error) {
	if len(records) == 0 {
		return SessionRecord{}, &SessionNotFoundError{}
	}
	best := records[0]
	for _, record := range records[1:] {
		if record.LastActiveAt.After(best.LastActiveAt) ||
			(record.LastActiveAt.Equal(best.LastActiveAt) && record.CreatedAt.After(best.CreatedAt)) {
			best = record
		}
	}
	return best, nil
}

// appendLine writes v as a single newline-terminated JSON line.
// One write call per record keeps concurrent readers from observing half a record
// as a complete line.
func appendLine(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	data = append(data, '\n')

	mu := lockForPath(path)
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, ledgerFileMode)
	if err != nil {
		return &StorageError{Path: path, Op: "open", Err: err}
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return &StorageError{Path: path, Op: "append", Err: err}
	}
	if err := f.Close(); err != nil {
		return &StorageError{Path: path, Op: "close", Err: err}
	}
	return nil
}

// readLedger decodes every complete line of a ledger file. A trailing line without
// a newline is still being written and is ignored. Undecodable lines are skipped
// and counted.
func readLedger[T any](path, ledger string, decode func([]byte) (T, error)) ([]T, int, error) {
	mu := lockForPath(path)
	mu.RLock()
	data, err := os.ReadFile(path)
	mu.RUnlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []T{}, 0, nil
		}
		return nil, 0, &StorageError{Path: path, Op: "read", Err: err}
	}

	lines := bytes.Split(data, []byte{'\n'})
	lines = lines[:len(lines)-1]

	records := make([]T, 0, len(lines))
	malformed := 0
	for i, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		record, err := decode(line)
		if err != nil {
			malformed++
			LogWarn("%v", &MalformedRecordError{Ledger: ledger, Line: i + 1, Err: err})
			continue
		}
		records = append(records, record)
	}
	return records, malformed, nil
}

func decodeFact(line []byte) (Fact, error) {
	var fact Fact
	if err := json.Unmarshal(line, &fact); err != nil {
		return Fact{}, err
	}
	if !fact.Topic.IsValid() {
		return Fact{}, fmt.Errorf("unknown topic %q", fact.Topic)
	}
	return fact, nil
}

func decodeSnapshot(line []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(line, &snapshot); err != nil {
		return Snapshot{}, err
	}
	if len(snapshot.Scores) == 0 {
		return Snapshot{}, errors.New("snapshot has no scores")
	}
	return snapshot, nil
}

func decodeToolEvent(line []byte) (ToolEvent, error) {
	var event ToolEvent
	if err := json.Unmarshal(line, &event); err != nil {
		return ToolEvent{}, err
	}
	return event, nil
}
