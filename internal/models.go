package internal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultConfidence is used when a writer does not supply a confidence
const DefaultConfidence = 0.9

// Fact is one captured piece of information in the Information Ledger
type Fact struct {
	// Seq is the 1-based position of the fact in its ledger, assigned on read
	Seq        int       `json:"seq,omitempty" yaml:"seq,omitempty" toml:"seq,omitempty"`
	ID         string    `json:"id" yaml:"id" toml:"id"`
	SessionID  string    `json:"session_id" yaml:"session_id" toml:"session_id"`
	Topic      Topic     `json:"topic" yaml:"topic" toml:"topic"`
	Subtopic   string    `json:"subtopic,omitempty" yaml:"subtopic,omitempty" toml:"subtopic,omitempty"`
	FactType   string    `json:"fact_type,omitempty" yaml:"fact_type,omitempty" toml:"fact_type,omitempty"`
	Value      string    `json:"value" yaml:"value" toml:"value"`
	Confidence float64   `json:"confidence" yaml:"confidence" toml:"confidence"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at" toml:"created_at"`
}

// FactInput holds the writer-supplied fields of a new fact
type FactInput struct {
	Topic    string
	Subtopic string
	Value    string
	FactType string
	// Confidence defaults to DefaultConfidence when nil
	Confidence *float64
}

// Validate checks the input and returns the canonical topic and confidence
func (in FactInput) Validate() (Topic, float64, error) {
	topic, err := ValidateTopic(in.Topic)
	if err != nil {
		return "", 0, err
	}
	if strings.TrimSpace(in.Value) == "" {
		return "", 0, &ValidationError{Field: "value", Msg: "value is required"}
	}
	confidence := DefaultConfidence
	if in.Confidence != nil {
		confidence = *in.Confidence
	}
	if confidence < 0 || confidence > 1 {
		return "", 0, &ValidationError{Field: "confidence", Msg: "confidence must be between 0.0 and 1.0"}
	}
	return topic, confidence, nil
}

// ScoreEntry is the coverage of one topic inside a snapshot
type ScoreEntry struct {
	Topic  Topic  `json:"topic" yaml:"topic" toml:"topic"`
	Level  Level  `json:"level" yaml:"level" toml:"level"`
	Score  *int   `json:"score,omitempty" yaml:"score,omitempty" toml:"score,omitempty"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty" toml:"reason,omitempty"`
}

// scoreEntryRecord is the wire form of a ScoreEntry.
// Level may be absent in records that only carry a numeric score.
type scoreEntryRecord struct {
	Topic  string `json:"topic"`
	Level  string `json:"level,omitempty"`
	Score  *int   `json:"score,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// NewScoreEntry validates a raw score entry. At least one of level or score is required;
// when only a score is given the level is derived from it.
func NewScoreEntry(topic, level string, score *int, reason string) (ScoreEntry, error) {
	t, err := ValidateTopic(topic)
	if err != nil {
		return ScoreEntry{}, err
	}

	entry := ScoreEntry{Topic: t, Score: score, Reason: reason}
	switch {
	case strings.TrimSpace(level) != "":
		entry.Level, err = ParseLevel(level)
		if err != nil {
			return ScoreEntry{}, err
		}
		if score != nil {
			if _, err := LevelFromScore(*score); err != nil {
				return ScoreEntry{}, err
			}
		}
	case score != nil:
		entry.Level, err = LevelFromScore(*score)
		if err != nil {
			return ScoreEntry{}, err
		}
	default:
		return ScoreEntry{}, &ValidationError{
			Field: "scores",
			Msg:   fmt.Sprintf("entry for topic %q needs a level or a score", topic),
		}
	}
	return entry, nil
}

// MarshalJSON implements json.Marshaler
func (e ScoreEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(scoreEntryRecord{
		Topic:  string(e.Topic),
		Level:  e.Level.String(),
		Score:  e.Score,
		Reason: e.Reason,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (e *ScoreEntry) UnmarshalJSON(data []byte) error {
	var record scoreEntryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}
	entry, err := NewScoreEntry(record.Topic, record.Level, record.Score, record.Reason)
	if err != nil {
		return err
	}
	*e = entry
	return nil
}

// Snapshot is one Completeness Ledger entry: the coverage of every discussed topic at an instant
type Snapshot struct {
	SessionID string       `json:"session_id" yaml:"session_id" toml:"session_id"`
	Scores    []ScoreEntry `json:"scores" yaml:"scores" toml:"scores"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at" toml:"created_at"`
}

// LevelOf returns the level recorded for topic in this snapshot
func (s *Snapshot) LevelOf(topic Topic) (Level, bool) {
	if s == nil {
		return LevelNone, false
	}
	for _, entry := range s.Scores {
		if entry.Topic == topic {
			return entry.Level, true
		}
	}
	return LevelNone, false
}

// ToolEvent records one agent tool invocation for audit
type ToolEvent struct {
	SessionID string    `json:"session_id" yaml:"session_id" toml:"session_id"`
	Tool      string    `json:"tool" yaml:"tool" toml:"tool"`
	Summary   string    `json:"summary,omitempty" yaml:"summary,omitempty" toml:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" toml:"created_at"`
}

// SessionRecord is a lightweight session entry
type SessionRecord struct {
	ID           string    `json:"id" yaml:"id" toml:"id"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at" toml:"created_at"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	LastActiveAt time.Time `json:"last_active_at,omitempty" yaml:"last_active_at,omitempty" toml:"last_active_at"`
}

// SessionStats summarizes the ledgers of one session
type SessionStats struct {
	SessionID    string
	Facts        int
	Snapshots    int
	ToolEvents   int
	Malformed    int
	LastActiveAt time.Time
}
