package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/iksnae/completeness-tracker/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFactReader struct {
	facts []internal.Fact
	err   error
}

func (f *fakeFactReader) ReadFacts(ctx context.Context, sessionID string) ([]internal.Fact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.facts, nil
}

func TestProfileViewerRendersGroups(t *testing.T) {
	reader := &fakeFactReader{facts: []internal.Fact{
		{Seq: 1, Topic: internal.TopicLifestylePurpose, FactType: "goal_focus", Value: "Travel"},
		{Seq: 2, Topic: internal.TopicIncomeCashFlow, Subtopic: "pension", FactType: "monthly_amount", Value: "$2,000"},
	}}
	v := NewProfileViewer(reader, "s1")
	require.NoError(t, v.Poll(context.Background()))

	view := v.render(plainStyles())
	var lines []string
	for _, line := range strings.Split(view, "\n") {
		lines = append(lines, strings.TrimRight(line, " "))
	}
	assert.Contains(t, lines, "income_cash_flow")
	assert.Contains(t, lines, "    pension")
	assert.Contains(t, lines, "        Monthly amount: $2,000")
	assert.Contains(t, lines, "    (uncategorized)")
	assert.Contains(t, lines, "        Goal focus: Travel")
	assert.Less(t, strings.Index(view, "income_cash_flow"), strings.Index(view, "lifestyle_purpose"))
}

func TestProfileViewerIsAdditive(t *testing.T) {
	reader := &fakeFactReader{facts: []internal.Fact{
		{Seq: 1, Topic: internal.TopicEstatePlanning, Value: "Has a will"},
	}}
	v := NewProfileViewer(reader, "s1")
	ctx := context.Background()
	require.NoError(t, v.Poll(ctx))
	before := v.render(plainStyles())

	reader.facts = append(reader.facts, internal.Fact{Seq: 2, Topic: internal.TopicEstatePlanning, Value: "No trust"})
	require.NoError(t, v.Poll(ctx))
	after := v.render(plainStyles())

	assert.Contains(t, after, "Fact: Has a will")
	assert.Contains(t, after, "Fact: No trust")
	assert.Less(t, strings.Index(after, "Has a will"), strings.Index(after, "No trust"))
	assert.NotEqual(t, before, after)
}

func TestProfileViewerEmptyAndDegraded(t *testing.T) {
	reader := &fakeFactReader{}
	v := NewProfileViewer(reader, "s1")
	ctx := context.Background()

	require.NoError(t, v.Poll(ctx))
	assert.Contains(t, v.render(plainStyles()), "awaiting data...")

	reader.facts = []internal.Fact{{Seq: 1, Topic: internal.TopicLongTermCare, Value: "No policy"}}
	require.NoError(t, v.Poll(ctx))

	reader.err = errors.New("permission denied")
	assert.Error(t, v.Poll(ctx))
	view := v.render(plainStyles())
	assert.True(t, v.Degraded())
	assert.Contains(t, view, "read failed")
	assert.Contains(t, view, "No policy")
}

func TestProfileViewerKeys(t *testing.T) {
	v := NewProfileViewer(&fakeFactReader{}, "s1")
	quit, _ := v.handleKey("1")
	assert.False(t, quit)
	quit, _ = v.handleKey("q")
	assert.True(t, quit)
}

func TestProfileViewerKeepsFactsWhenLedgerShrinks(t *testing.T) {
	reader := &fakeFactReader{facts: []internal.Fact{
		{Seq: 1, ID: "f1", Topic: internal.TopicHousingGeography, Value: "Owns a condo"},
		{Seq: 2, ID: "f2", Topic: internal.TopicHousingGeography, Value: "Wants to move south"},
	}}
	v := NewProfileViewer(reader, "s1")
	ctx := context.Background()
	require.NoError(t, v.Poll(ctx))

	// the session was recreated and the ledger restarted
	reader.facts = []internal.Fact{
		{Seq: 1, ID: "f3", Topic: internal.TopicLongTermCare, Value: "No policy"},
	}
	require.NoError(t, v.Poll(ctx))

	view := v.render(plainStyles())
	assert.Contains(t, view, "Owns a condo")
	assert.Contains(t, view, "Wants to move south")
	assert.Contains(t, view, "No policy")

	total := 0
	for _, group := range v.Groups() {
		for _, sub := range group.Subtopics {
			total += len(sub.Facts)
		}
	}
	assert.Equal(t, 3, total)

	require.NoError(t, v.Poll(ctx))
	assert.Equal(t, view, v.render(plainStyles()), "rereading the same ledger adds nothing")
}
