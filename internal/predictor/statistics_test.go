package predictor

import (
	"testing"

	"loterias-bot/internal/database"

	"github.com/stretchr/testify/assert"
)

func entriesWithScores(scores ...float64) []database.BacktestEntry {
	entries := make([]database.BacktestEntry, len(scores))
	for i, s := range scores {
		entries[i] = database.BacktestEntry{Step: i + 1, Score: s}
	}
	return entries
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	assert.Equal(t, 0, summary.Steps)
	assert.Equal(t, TrendInsufficient, summary.TrendDirection)
	assert.Empty(t, summary.MovingAverage)
}

func TestSummarizeScores(t *testing.T) {
	entries := entriesWithScores(0, 50, 50, 0, 0, 100)
	entries[1].AlreadyOccurred = true

	summary := Summarize(entries)
	assert.Equal(t, 6, summary.Steps)
	assert.InDelta(t, 200.0/6, summary.MeanScore, 1e-9)
	assert.Equal(t, 100.0, summary.MaxScore)
	assert.Equal(t, 0.0, summary.MinScore)
	assert.Greater(t, summary.StdDev, 0.0)
	assert.Equal(t, 1, summary.OccurredCount)

	assert.Equal(t, []float64{20, 40}, summary.MovingAverage)
	assert.Equal(t, TrendImproving, summary.TrendDirection)
}

func TestTrendDirection(t *testing.T) {
	assert.Equal(t, TrendInsufficient, trendDirection([]float64{10}))
	assert.Equal(t, TrendStable, trendDirection([]float64{10, 10.5}))
	assert.Equal(t, TrendDeclining, trendDirection([]float64{30, 10}))
	assert.Equal(t, TrendImproving, trendDirection([]float64{10, 30}))
}
