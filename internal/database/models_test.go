package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumbersSeparators(t *testing.T) {
	cases := map[string][]int{
		"1, 5, 12, 23": {1, 5, 12, 23},
		"3+7+9":        {3, 7, 9},
		"04 11 25":     {4, 11, 25},
		"01-02-03;04":  {1, 2, 3, 4},
	}
	for in, want := range cases {
		got, err := ParseNumbers(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseNumbers("1, x, 3")
	assert.Error(t, err)
	_, err = ParseNumbers("  ")
	assert.Error(t, err)
}

func TestFormatNumbersRoundTrip(t *testing.T) {
	assert.Equal(t, "1,15,60", FormatNumbers([]int{1, 15, 60}))
	assert.Equal(t, "", FormatNumbers(nil))
}

func TestSumAndParityHelpers(t *testing.T) {
	nums := []int{2, 7, 11, 20, 33, 48}
	assert.Equal(t, 121, CalculateSum(nums))
	assert.Equal(t, 3, CountEven(nums))
	assert.Equal(t, []int{1, 2, 3}, SortedCopy([]int{3, 1, 2}))
}

func TestValidateSet(t *testing.T) {
	assert.NoError(t, ValidateSet([]int{1, 2, 3}, 3, 1, 60))
	assert.Error(t, ValidateSet([]int{1, 2}, 3, 1, 60))
	assert.Error(t, ValidateSet([]int{1, 2, 61}, 3, 1, 60))
	assert.Error(t, ValidateSet([]int{1, 2, 2}, 3, 1, 60))
}

func TestValidateColumnsAllowsRepeats(t *testing.T) {
	assert.NoError(t, ValidateColumns([]int{0, 0, 9, 9, 3, 3, 1}, 7, 0, 9))
	assert.Error(t, ValidateColumns([]int{0, 10, 9, 9, 3, 3, 1}, 7, 0, 9))
	assert.Error(t, ValidateColumns([]int{1, 2}, 7, 0, 9))
}

func TestHistoryViews(t *testing.T) {
	h := &History{Variant: "megasena", Draws: []Draw{
		{Contest: 1, Numbers: []int{1, 2, 3, 4, 5, 6}},
		{Contest: 2, Numbers: []int{7, 8, 9, 10, 11, 12}},
		{Contest: 3, Numbers: []int{13, 14, 15, 16, 17, 18}},
	}}

	table := h.Table()
	require.Len(t, table, 3)
	table[0][0] = 99
	assert.Equal(t, 1, h.Draws[0].Numbers[0], "table rows are copies")

	w := h.Window(1, 3)
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, 2, w.Draws[0].Contest)

	var empty *History
	assert.Equal(t, 0, empty.Len())
	_, ok := empty.Last()
	assert.False(t, ok)
}

func TestNewSuggestionCopiesNumbers(t *testing.T) {
	nums := []int{5, 10, 15}
	s := NewSuggestion("quina", MethodManual, nums)
	nums[0] = 1

	assert.Equal(t, []int{5, 10, 15}, s.Numbers)
	assert.NotEmpty(t, s.ID)
	assert.NotEqual(t, s.ID, NewID())
}

func TestParseMonth(t *testing.T) {
	assert.Equal(t, 3, ParseMonth("Março"))
	assert.Equal(t, 3, ParseMonth("marco"))
	assert.Equal(t, 8, ParseMonth(" AGOSTO "))
	assert.Equal(t, 12, ParseMonth("12"))
	assert.Equal(t, 0, ParseMonth("13"))
	assert.Equal(t, 0, ParseMonth(""))
}
