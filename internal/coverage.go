package internal

import (
	"fmt"
	"strings"
)

// Level describes how thoroughly a topic has been discussed.
// Levels are ordered: none < partial < mostly < complete.
type Level int

const (
	LevelNone Level = iota
	LevelPartial
	LevelMostly
	LevelComplete
)

var levelNames = []string{"none", "partial", "mostly", "complete"}

func (l Level) String() string {
	if l < LevelNone || l > LevelComplete {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel parses a level name (case-insensitive)
func ParseLevel(raw string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for i, candidate := range levelNames {
		if name == candidate {
			return Level(i), nil
		}
	}
	return LevelNone, &ValidationError{
		Field: "level",
		Msg:   fmt.Sprintf("invalid level %q, expected one of: %s", raw, strings.Join(levelNames, ", ")),
	}
}

// LevelFromScore maps a 0-100 completeness score onto a Level
func LevelFromScore(score int) (Level, error) {
	switch {
	case score < 0 || score > 100:
		return LevelNone, &ValidationError{
			Field: "score",
			Msg:   fmt.Sprintf("score %d must be an integer between 0 and 100", score),
		}
	case score == 0:
		return LevelNone, nil
	case score < 50:
		return LevelPartial, nil
	case score < 90:
		return LevelMostly, nil
	default:
		return LevelComplete, nil
	}
}

// MarshalText encodes the level by name
func (l Level) MarshalText() ([]byte, error) {
	if l < LevelNone || l > LevelComplete {
		return nil, fmt.Errorf("cannot marshal %s", l)
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Trend is the per-topic movement between two consecutive snapshots
type Trend int

const (
	TrendUnknown Trend = iota
	TrendUp
	TrendDown
	TrendNeutral
)

func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	case TrendNeutral:
		return "neutral"
	default:
		return "unknown"
	}
}

// TopicStatus is the monitor's view of one topic
type TopicStatus struct {
	Topic Topic
	// Level is the most recent level recorded for the topic in any snapshot
	Level Level
	// Score is the most recent numeric score, when the writer supplied one
	Score *int
	Seen  bool
	Trend Trend
	// FirstSeen marks a topic present in the latest snapshot but absent from the previous one
	FirstSeen bool
}

// CompareSnapshots computes the trend of topic between an older and a newer snapshot.
// A topic missing from the newer (sparse) snapshot keeps its older level.
func CompareSnapshots(older, newer *Snapshot, topic Topic) Trend {
	if older == nil {
		return TrendUnknown
	}
	before, ok := older.LevelOf(topic)
	if !ok {
		return TrendUnknown
	}
	after, ok := newer.LevelOf(topic)
	if !ok {
		return TrendNeutral
	}
	switch {
	case after > before:
		return TrendUp
	case after < before:
		return TrendDown
	default:
		return TrendNeutral
	}
}

// SummarizeCoverage reduces a ledger of snapshots into one status per canonical topic.
// The latest snapshot is compared against the one immediately before it.
func SummarizeCoverage(snapshots []Snapshot) []TopicStatus {
	statuses := make([]TopicStatus, len(CanonicalTopics))
	index := make(map[Topic]int, len(CanonicalTopics))
	for i, topic := range CanonicalTopics {
		statuses[i] = TopicStatus{Topic: topic, Trend: TrendUnknown}
		index[topic] = i
	}

	for _, snapshot := range snapshots {
		for _, entry := range snapshot.Scores {
			i, ok := index[entry.Topic]
			if !ok {
				continue
			}
			statuses[i].Level = entry.Level
			statuses[i].Score = entry.Score
			statuses[i].Seen = true
		}
	}

	if len(snapshots) == 0 {
		return statuses
	}

	latest := &snapshots[len(snapshots)-1]
	var previous *Snapshot
	if len(snapshots) > 1 {
		previous = &snapshots[len(snapshots)-2]
	}

	for i := range statuses {
		topic := statuses[i].Topic
		statuses[i].Trend = CompareSnapshots(previous, latest, topic)
		if statuses[i].Trend == TrendUnknown {
			_, inLatest := latest.LevelOf(topic)
			statuses[i].FirstSeen = inLatest
		}
	}

	return statuses
}
