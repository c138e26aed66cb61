package export

import (
	"context"
	"time"

	"github.com/iksnae/completeness-tracker/internal"
)

// Reader is the read side of the session store needed to build a document
type Reader interface {
	ListSessions(ctx context.Context) ([]internal.SessionRecord, error)
	ReadFacts(ctx context.Context, sessionID string) ([]internal.Fact, error)
	ReadSnapshots(ctx context.Context, sessionID string) ([]internal.Snapshot, error)
}

// CoverageRow is the latest coverage of one topic
type CoverageRow struct {
	Topic internal.Topic `json:"topic" yaml:"topic" toml:"topic"`
	Level string         `json:"level" yaml:"level" toml:"level"`
	Score *int           `json:"score,omitempty" yaml:"score,omitempty" toml:"score,omitempty"`
	Trend string         `json:"trend" yaml:"trend" toml:"trend"`
}

// Document is everything recorded for one session
type Document struct {
	Session    internal.SessionRecord `json:"session" yaml:"session" toml:"session"`
	ExportedAt time.Time              `json:"exported_at" yaml:"exported_at" toml:"exported_at"`
	Coverage   []CoverageRow          `json:"coverage" yaml:"coverage" toml:"coverage"`
	Facts      []internal.Fact        `json:"facts" yaml:"facts" toml:"facts"`
	Snapshots  []internal.Snapshot    `json:"snapshots" yaml:"snapshots" toml:"snapshots"`
}

// BuildDocument collects the ledgers of sessionID into a Document
func BuildDocument(ctx context.Context, reader Reader, sessionID string) (*Document, error) {
	facts, err := reader.ReadFacts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snapshots, err := reader.ReadSnapshots(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	record := internal.SessionRecord{ID: sessionID}
	sessions, err := reader.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		if s.ID == sessionID {
			record = s
			break
		}
	}

	return NewDocument(record, facts, snapshots), nil
}

// NewDocument assembles a document from already-read ledgers
func NewDocument(record internal.SessionRecord, facts []internal.Fact, snapshots []internal.Snapshot) *Document {
	doc := &Document{
		Session:    record,
		ExportedAt: time.Now().UTC(),
		Facts:      facts,
		Snapshots:  snapshots,
	}
	if doc.Facts == nil {
		doc.Facts = []internal.Fact{}
	}
	if doc.Snapshots == nil {
		doc.Snapshots = []internal.Snapshot{}
	}

	for _, status := range internal.SummarizeCoverage(snapshots) {
		if !status.Seen {
			continue
		}
		trend := status.Trend.String()
		if status.FirstSeen {
			trend = "new"
		}
		doc.Coverage = append(doc.Coverage, CoverageRow{
			Topic: status.Topic,
			Level: status.Level.String(),
			Score: status.Score,
			Trend: trend,
		})
	}
	if doc.Coverage == nil {
		doc.Coverage = []CoverageRow{}
	}
	return doc
}
