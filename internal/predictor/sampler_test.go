package predictor

import (
	"testing"

	"loterias-bot/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticalSuggestionsAreValidSets(t *testing.T) {
	game := megaSena(t)
	history := syntheticHistory(40, 7)

	freq, err := BuildFrequency(history, game)
	require.NoError(t, err)
	moments, err := SumMoments(history)
	require.NoError(t, err)

	suggestions := GenerateStatisticalSuggestions(freq, game, moments, 0)
	require.Len(t, suggestions, DefaultSuggestionCount)

	for _, s := range suggestions {
		assertValidSet(t, s.Numbers, 6, 1, 60)
		assert.Equal(t, database.MethodStatistical, s.Method)
		assert.Equal(t, "megasena", s.Variant)
	}
}

func TestStatisticalSuggestionsDeterministic(t *testing.T) {
	game := megaSena(t)
	history := syntheticHistory(30, 11)

	freq, err := BuildFrequency(history, game)
	require.NoError(t, err)
	moments, err := SumMoments(history)
	require.NoError(t, err)

	first := GenerateStatisticalSuggestions(freq, game, moments, 8)
	second := GenerateStatisticalSuggestions(freq, game, moments, 8)
	require.Len(t, first, 8)
	require.Len(t, second, 8)

	for i := range first {
		assert.Equal(t, first[i].Numbers, second[i].Numbers, "seed %d", i)
		assert.NotEqual(t, first[i].ID, second[i].ID)
	}
}

func TestSamplerFallsBackToFillWhenWindowUnreachable(t *testing.T) {
	game := megaSena(t)
	freq, err := BuildFrequency(syntheticHistory(25, 3), game)
	require.NoError(t, err)

	samples := NewStatisticalGenerator().Generate(freq, game, Moments{Mean: 5000, Std: 1}, 3)
	require.Len(t, samples, 3)
	for _, s := range samples {
		assert.False(t, s.Constrained)
		assertValidSet(t, s.Suggestion.Numbers, 6, 1, 60)
	}
}

func TestSamplerEndToEndConstrainedSuccess(t *testing.T) {
	game := megaSena(t)

	// 20..37 各出现8次，1..6 出现1次：高频池恰为 20..37
	history := &database.History{Variant: "megasena"}
	groups := [][]int{
		{20, 21, 22, 23, 24, 25},
		{26, 27, 28, 29, 30, 31},
		{32, 33, 34, 35, 36, 37},
	}
	for i := 0; i < 24; i++ {
		history.Draws = append(history.Draws, database.Draw{Contest: i + 1, Numbers: groups[i%3]})
	}
	history.Draws = append(history.Draws, database.Draw{Contest: 25, Numbers: []int{1, 2, 3, 4, 5, 6}})
	require.Equal(t, 25, history.Len())

	freq, err := BuildFrequency(history, game)
	require.NoError(t, err)
	require.Equal(t, []int{20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35, 36, 37}, freq.Top(18))

	gen := &StatisticalGenerator{
		NewSource: func(int64) RandomSource {
			return &scriptedSource{values: []int{8, 9, 10, 11, 12, 13}}
		},
		MaxAttempts: MaxSampleAttempts,
	}

	moments := Moments{Mean: 180, Std: 20}
	samples := gen.Generate(freq, game, moments, 3)
	require.Len(t, samples, 3)

	for _, s := range samples {
		require.True(t, s.Constrained)
		nums := s.Suggestion.Numbers
		assertValidSet(t, nums, 6, 1, 60)
		assert.Equal(t, []int{28, 29, 30, 31, 32, 33}, nums)

		evens := database.CountEven(nums)
		assert.GreaterOrEqual(t, evens, 2)
		assert.GreaterOrEqual(t, len(nums)-evens, 2)

		sum := float64(database.CalculateSum(nums))
		assert.GreaterOrEqual(t, sum, moments.Mean-moments.Std)
		assert.LessOrEqual(t, sum, moments.Mean+moments.Std)
	}
}

func TestSamplerRejectsImplausibleAdditions(t *testing.T) {
	game := megaSena(t)
	freq := NewFrequencyTable(1, 60)
	for n := 1; n <= 18; n++ {
		freq.Counts[n-1] = 100 - n
	}

	// 池为1..18，第五个偶数会让奇数不可能凑够两个，因此被拒绝
	gen := &StatisticalGenerator{
		NewSource: func(int64) RandomSource {
			return &scriptedSource{values: []int{1, 3, 5, 7, 9, 0, 2}}
		},
		MaxAttempts: 7,
	}
	samples := gen.Generate(freq, game, Moments{Mean: 57, Std: 100}, 1)
	require.Len(t, samples, 1)

	assert.True(t, samples[0].Constrained)
	assert.Equal(t, []int{1, 2, 3, 4, 6, 8}, samples[0].Suggestion.Numbers)
}

func TestColumnarSuggestionsUseTopDigitsPerColumn(t *testing.T) {
	game := superSete(t)
	history := &database.History{Variant: "supersete"}
	for i := 0; i < 12; i++ {
		history.Draws = append(history.Draws, database.Draw{
			Contest: i + 1,
			Numbers: []int{i % 3, 5, 5, 9, (i % 2) * 9, 0, 1},
		})
	}

	freq, err := BuildFrequency(history, game)
	require.NoError(t, err)

	suggestions := GenerateStatisticalSuggestions(freq, game, Moments{}, 4)
	require.Len(t, suggestions, 4)
	for _, s := range suggestions {
		require.NoError(t, database.ValidateColumns(s.Numbers, 7, 0, 9))
		assert.Contains(t, []int{0, 1, 2}, s.Numbers[0])
		assert.Equal(t, 5, s.Numbers[1])
		assert.Equal(t, 9, s.Numbers[3])
		assert.Equal(t, 1, s.Numbers[6])
	}
}

func TestFillRandomTerminatesAndDedupes(t *testing.T) {
	out := fillRandom([]int{3, 3, 99}, 5, 1, 5, NewSeededSource(1))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, out)
}
