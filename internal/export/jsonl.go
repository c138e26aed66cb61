package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/completeness-tracker/internal"
)

type factLine struct {
	Kind string `json:"kind"`
	internal.Fact
}

type snapshotLine struct {
	Kind string `json:"kind"`
	internal.Snapshot
}

// JSONLExporter exports sessions in JSONL format: one fact or snapshot per line,
// facts first, each in ledger order
type JSONLExporter struct{}

// Export exports a session to JSONL format
func (e *JSONLExporter) Export(doc *Document, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, fact := range doc.Facts {
		if err := enc.Encode(factLine{Kind: "fact", Fact: fact}); err != nil {
			return fmt.Errorf("failed to encode fact: %w", err)
		}
	}
	for _, snapshot := range doc.Snapshots {
		if err := enc.Encode(snapshotLine{Kind: "snapshot", Snapshot: snapshot}); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
