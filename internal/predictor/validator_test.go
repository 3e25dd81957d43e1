package predictor

import (
	"context"
	"testing"

	"loterias-bot/internal/database"
	apperrors "loterias-bot/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccuracyBounds(t *testing.T) {
	s := []int{1, 2, 3, 4, 5, 6}

	assert.Equal(t, 1.0, Accuracy(s, s))
	assert.Equal(t, 0.0, Accuracy(s, []int{7, 8, 9, 10, 11, 12}))
	assert.Equal(t, 0.5, Accuracy(s, []int{1, 2, 3, 40, 50, 60}))
	assert.Equal(t, 0.0, Accuracy(s, nil))

	for _, actual := range [][]int{{1}, {6, 5, 4, 3, 2, 1}, {1, 1, 2}} {
		score := Accuracy(s, actual)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestHasOccurredExactSetOnly(t *testing.T) {
	history := [][]int{
		{5, 10, 15, 20, 25, 30},
		{1, 2, 3, 4, 5, 6},
	}

	assert.True(t, HasOccurred([]int{30, 25, 20, 15, 10, 5}, history))
	assert.True(t, HasOccurred([]int{1, 2, 3, 4, 5, 6}, history))
	assert.False(t, HasOccurred([]int{1, 2, 3, 4, 5, 7}, history))
	assert.False(t, HasOccurred([]int{1, 2, 3, 4, 5}, history))
	assert.False(t, HasOccurred([]int{1, 2, 3, 4, 5, 6}, nil))
}

func TestScoreDoesNotMutateSuggestion(t *testing.T) {
	s := database.NewSuggestion("megasena", database.MethodManual, []int{1, 2, 3, 4, 5, 6})
	scored := Score(s, []int{1, 2, 3, 7, 8, 9}, [][]int{{1, 2, 3, 4, 5, 6}})

	assert.Same(t, s, scored.Suggestion)
	assert.Equal(t, 0.5, scored.Accuracy)
	assert.True(t, scored.AlreadyOccurred)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, s.Numbers)
}

func TestValidateMultiLabelWalkForward(t *testing.T) {
	game := megaSena(t)
	table := syntheticHistory(24, 9).Table()
	total := len(table)

	entries, err := ValidateMultiLabel(context.Background(), table, game, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for i, e := range entries {
		step := 3 - i
		assert.Equal(t, i+1, e.Step)
		assert.Equal(t, total-step, e.TestIndex)
		assert.Equal(t, total-step-1, e.TrainEnd)
		assert.Less(t, e.TrainEnd, e.TestIndex, "no lookahead")
		assertValidSet(t, e.Suggestion.Numbers, 6, 1, 60)
		assert.Equal(t, database.MethodBacktest, e.Suggestion.Method)
		assert.GreaterOrEqual(t, e.Score, 0.0)
		assert.LessOrEqual(t, e.Score, 100.0)
		assert.Equal(t, table[e.TargetIndex], e.Actual)
		assert.InDelta(t, Accuracy(e.Suggestion.Numbers, e.Actual)*100, e.Score, 1e-9)
	}

	assert.Equal(t, total-2, entries[0].TargetIndex)
	assert.Equal(t, total-1, entries[1].TargetIndex)
	assert.Equal(t, total-1, entries[2].TargetIndex, "past the end falls back to the latest draw")
}

func TestValidateMultiLabelBounds(t *testing.T) {
	game := megaSena(t)
	table := syntheticHistory(25, 9).Table()

	_, err := ValidateMultiLabel(context.Background(), table, game, 0)
	assert.True(t, apperrors.IsConfiguration(err))

	_, err = ValidateMultiLabel(context.Background(), table, game, DefaultMaxValidations+1)
	assert.True(t, apperrors.IsConfiguration(err))

	_, err = ValidateMultiLabel(context.Background(), table, game, 6)
	insufficient, ok := apperrors.AsInsufficientData(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, 26, insufficient.Required)
	assert.Equal(t, 25, insufficient.Got)

	_, err = ValidateMultiLabel(context.Background(), table, superSete(t), 1)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestValidateMultiLabelHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ValidateMultiLabel(ctx, syntheticHistory(25, 1).Table(), megaSena(t), 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidatorCustomBound(t *testing.T) {
	v := NewValidator(2)
	_, err := v.Validate(context.Background(), syntheticHistory(30, 1).Table(), megaSena(t), 3)
	assert.True(t, apperrors.IsConfiguration(err))

	assert.Equal(t, DefaultMaxValidations, NewValidator(0).MaxValidations)
}

func TestRankBacktestOrdersNotOccurredFirst(t *testing.T) {
	entries := []database.BacktestEntry{
		{Step: 1, Score: 50, AlreadyOccurred: true},
		{Step: 2, Score: 16.7},
		{Step: 3, Score: 33.3},
		{Step: 4, Score: 100, AlreadyOccurred: true},
		{Step: 5, Score: 33.3},
	}

	ranked := RankBacktest(entries)
	steps := make([]int, len(ranked))
	for i, e := range ranked {
		steps[i] = e.Step
	}
	assert.Equal(t, []int{3, 5, 2, 4, 1}, steps)
	assert.Equal(t, 1, entries[0].Step, "input order untouched")
}
