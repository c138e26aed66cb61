package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/completeness-tracker/internal"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func intPtr(v int) *int { return &v }

func sampleDocument() *Document {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	facts := []internal.Fact{
		{Seq: 1, ID: "f1", SessionID: "s1", Topic: internal.TopicIncomeCashFlow, Subtopic: "pension", FactType: "monthly_amount", Value: "$2,000", Confidence: 0.9, CreatedAt: created},
		{Seq: 2, ID: "f2", SessionID: "s1", Topic: internal.TopicEstatePlanning, Value: "Has a **will**", Confidence: 0.8, CreatedAt: created.Add(time.Minute)},
	}
	snapshots := []internal.Snapshot{
		{SessionID: "s1", CreatedAt: created, Scores: []internal.ScoreEntry{
			{Topic: internal.TopicIncomeCashFlow, Level: internal.LevelPartial, Score: intPtr(30)},
		}},
		{SessionID: "s1", CreatedAt: created.Add(time.Minute), Scores: []internal.ScoreEntry{
			{Topic: internal.TopicIncomeCashFlow, Level: internal.LevelMostly, Score: intPtr(60), Reason: "pension confirmed"},
			{Topic: internal.TopicEstatePlanning, Level: internal.LevelPartial},
		}},
	}
	return NewDocument(internal.SessionRecord{ID: "s1", CreatedAt: created, Description: "intake"}, facts, snapshots)
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{format: "jsonl", wantExt: "jsonl"},
		{format: "md", wantExt: "md"},
		{format: "markdown", wantExt: "md"},
		{format: "yaml", wantExt: "yaml"},
		{format: "YAML", wantExt: "yaml"},
		{format: "json", wantExt: "json"},
		{format: "toml", wantExt: "toml"},
		{format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			exporter, err := NewExporter(tt.format)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, exporter.Extension())
		})
	}
}

func TestNewDocumentCoverage(t *testing.T) {
	doc := sampleDocument()
	require.Len(t, doc.Coverage, 2)
	assert.Equal(t, internal.TopicIncomeCashFlow, doc.Coverage[0].Topic)
	assert.Equal(t, "mostly", doc.Coverage[0].Level)
	assert.Equal(t, "up", doc.Coverage[0].Trend)
	assert.Equal(t, "new", doc.Coverage[1].Trend)

	empty := NewDocument(internal.SessionRecord{ID: "s2"}, nil, nil)
	assert.NotNil(t, empty.Facts)
	assert.NotNil(t, empty.Snapshots)
	assert.Empty(t, empty.Coverage)
}

func TestJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONExporter{}).Export(sampleDocument(), &buf))

	var decoded struct {
		Session   internal.SessionRecord `json:"session"`
		Facts     []internal.Fact        `json:"facts"`
		Snapshots []internal.Snapshot    `json:"snapshots"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "s1", decoded.Session.ID)
	assert.Len(t, decoded.Facts, 2)
	require.Len(t, decoded.Snapshots, 2)
	assert.Equal(t, internal.LevelMostly, decoded.Snapshots[1].Scores[0].Level)
}

func TestJSONLExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONLExporter{}).Export(sampleDocument(), &buf))

	kinds := map[string]int{}
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		kinds[line["kind"].(string)]++
	}
	assert.Equal(t, 2, kinds["fact"])
	assert.Equal(t, 2, kinds["snapshot"])
}

func TestYAMLExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLExporter{}).Export(sampleDocument(), &buf))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded["facts"], 2)
	assert.Contains(t, buf.String(), "level: mostly")
}

func TestTOMLExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TOMLExporter{}).Export(sampleDocument(), &buf))

	var decoded map[string]any
	require.NoError(t, toml.Unmarshal(buf.Bytes(), &decoded))
	facts, ok := decoded["facts"].([]any)
	require.True(t, ok, "facts should decode as an array of tables")
	assert.Len(t, facts, 2)
	assert.Contains(t, buf.String(), "[session]")
}

func TestMarkdownExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownExporter{}).Export(sampleDocument(), &buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Session s1\n"))
	assert.Contains(t, out, "**Description:** intake")
	assert.Contains(t, out, "| income_cash_flow | mostly | 60 | up |")
	assert.Contains(t, out, "### income_cash_flow")
	assert.Contains(t, out, "- Monthly amount: $2,000")
	assert.Contains(t, out, "**(uncategorized)**")
	assert.Contains(t, out, `- Fact: Has a \*\*will\*\*`)
	assert.Less(t, strings.Index(out, "### income_cash_flow"), strings.Index(out, "### estate_planning"))
}

func TestMarkdownExporterEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownExporter{}).Export(NewDocument(internal.SessionRecord{ID: "s2"}, nil, nil), &buf))
	assert.Contains(t, buf.String(), "_No information recorded._")
	assert.Contains(t, buf.String(), "_No completeness snapshots recorded._")
}

func TestBuildDocument(t *testing.T) {
	store := internal.NewFileStore(internal.NewDataPaths(t.TempDir()), internal.StoreOptions{})
	ctx := context.Background()

	record, err := store.CreateSession(ctx, "annual review")
	require.NoError(t, err)
	_, err = store.AppendFact(ctx, record.ID, internal.FactInput{Topic: "long_term_care", Value: "No policy"})
	require.NoError(t, err)
	_, err = store.AppendSnapshot(ctx, record.ID, []internal.ScoreEntry{{Topic: internal.TopicLongTermCare, Level: internal.LevelPartial}})
	require.NoError(t, err)

	doc, err := BuildDocument(ctx, store, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "annual review", doc.Session.Description)
	assert.Len(t, doc.Facts, 1)
	assert.Len(t, doc.Snapshots, 1)

	for _, format := range Formats {
		exporter, err := NewExporter(format)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, exporter.Export(doc, &buf), format)
		assert.Contains(t, buf.String(), "No policy", format)
	}

	_, err = BuildDocument(ctx, store, "missing")
	assert.True(t, internal.IsNotFound(err))
}
