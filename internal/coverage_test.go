package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotOf(levels map[Topic]Level) Snapshot {
	snap := Snapshot{SessionID: "s1"}
	for _, topic := range CanonicalTopics {
		if level, ok := levels[topic]; ok {
			snap.Scores = append(snap.Scores, ScoreEntry{Topic: topic, Level: level})
		}
	}
	return snap
}

func TestLevelFromScore(t *testing.T) {
	tests := []struct {
		score   int
		want    Level
		wantErr bool
	}{
		{score: 0, want: LevelNone},
		{score: 1, want: LevelPartial},
		{score: 49, want: LevelPartial},
		{score: 50, want: LevelMostly},
		{score: 89, want: LevelMostly},
		{score: 90, want: LevelComplete},
		{score: 100, want: LevelComplete},
		{score: -1, wantErr: true},
		{score: 101, wantErr: true},
	}

	for _, tt := range tests {
		got, err := LevelFromScore(tt.score)
		if tt.wantErr {
			assert.Error(t, err, "score %d", tt.score)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "score %d", tt.score)
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("Mostly")
	require.NoError(t, err)
	assert.Equal(t, LevelMostly, level)

	_, err = ParseLevel("done")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "level", validation.Field)

	assert.True(t, LevelNone < LevelPartial && LevelPartial < LevelMostly && LevelMostly < LevelComplete)
}

func TestCompareSnapshots(t *testing.T) {
	s1 := snapshotOf(map[Topic]Level{
		TopicIncomeCashFlow:     LevelPartial,
		TopicHealthcareMedicare: LevelMostly,
		TopicHousingGeography:   LevelComplete,
		TopicLongTermCare:       LevelPartial,
	})
	s2 := snapshotOf(map[Topic]Level{
		TopicIncomeCashFlow:     LevelMostly,
		TopicHealthcareMedicare: LevelMostly,
		TopicHousingGeography:   LevelPartial,
		TopicEstatePlanning:     LevelPartial,
	})

	tests := []struct {
		topic Topic
		want  Trend
	}{
		{TopicIncomeCashFlow, TrendUp},
		{TopicHealthcareMedicare, TrendNeutral},
		{TopicHousingGeography, TrendDown},
		{TopicLongTermCare, TrendNeutral},
		{TopicEstatePlanning, TrendUnknown},
		{TopicLifestylePurpose, TrendUnknown},
	}
	for _, tt := range tests {
		t.Run(string(tt.topic), func(t *testing.T) {
			assert.Equal(t, tt.want, CompareSnapshots(&s1, &s2, tt.topic))
		})
	}

	assert.Equal(t, TrendUnknown, CompareSnapshots(nil, &s2, TopicIncomeCashFlow))
}

func TestSummarizeCoverage(t *testing.T) {
	t.Run("empty ledger", func(t *testing.T) {
		statuses := SummarizeCoverage(nil)
		require.Len(t, statuses, len(CanonicalTopics))
		for _, status := range statuses {
			assert.False(t, status.Seen)
			assert.Equal(t, TrendUnknown, status.Trend)
		}
	})

	t.Run("single snapshot marks first seen", func(t *testing.T) {
		statuses := SummarizeCoverage([]Snapshot{
			snapshotOf(map[Topic]Level{TopicIncomeCashFlow: LevelPartial}),
		})
		assert.True(t, statuses[0].FirstSeen)
		assert.Equal(t, LevelPartial, statuses[0].Level)
		assert.False(t, statuses[1].Seen)
		assert.False(t, statuses[1].FirstSeen)
	})

	t.Run("sparse latest keeps earlier level", func(t *testing.T) {
		statuses := SummarizeCoverage([]Snapshot{
			snapshotOf(map[Topic]Level{TopicIncomeCashFlow: LevelPartial, TopicLongTermCare: LevelMostly}),
			snapshotOf(map[Topic]Level{TopicIncomeCashFlow: LevelComplete}),
		})
		assert.Equal(t, TrendUp, statuses[0].Trend)
		assert.Equal(t, LevelComplete, statuses[0].Level)

		ltc := statuses[5]
		assert.Equal(t, TopicLongTermCare, ltc.Topic)
		assert.Equal(t, LevelMostly, ltc.Level)
		assert.Equal(t, TrendNeutral, ltc.Trend)
	})

	t.Run("only the last two snapshots drive the trend", func(t *testing.T) {
		statuses := SummarizeCoverage([]Snapshot{
			snapshotOf(map[Topic]Level{TopicIncomeCashFlow: LevelNone}),
			snapshotOf(map[Topic]Level{TopicIncomeCashFlow: LevelMostly}),
			snapshotOf(map[Topic]Level{TopicIncomeCashFlow: LevelMostly}),
		})
		assert.Equal(t, TrendNeutral, statuses[0].Trend)
	})
}
