package predictor

import (
	"math/rand"
	"sort"
	"testing"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"

	"github.com/stretchr/testify/require"
)

func megaSena(t *testing.T) config.Game {
	t.Helper()
	g, err := config.BuildGame(config.GameSpec{Key: "megasena", Name: "MegaSena", MinNum: 1, MaxNum: 60, NumBolas: 6})
	require.NoError(t, err)
	return g
}

func superSete(t *testing.T) config.Game {
	t.Helper()
	g, err := config.BuildGame(config.GameSpec{Key: "supersete", Name: "Super Sete", Kind: config.KindColumnar, MinNum: 0, MaxNum: 9, Columns: 7})
	require.NoError(t, err)
	return g
}

func syntheticHistory(n int, seed int64) *database.History {
	rng := rand.New(rand.NewSource(seed))
	h := &database.History{Variant: "megasena"}
	for i := 0; i < n; i++ {
		nums := rng.Perm(60)[:6]
		for j := range nums {
			nums[j]++
		}
		sort.Ints(nums)
		h.Draws = append(h.Draws, database.Draw{Contest: i + 1, Numbers: nums})
	}
	return h
}

// scriptedSource 按顺序循环返回预设值
type scriptedSource struct {
	values []int
	pos    int
}

func (s *scriptedSource) Intn(n int) int {
	v := s.values[s.pos%len(s.values)] % n
	s.pos++
	return v
}

func assertValidSet(t *testing.T, nums []int, size, min, max int) {
	t.Helper()
	require.NoError(t, database.ValidateSet(nums, size, min, max))
	require.True(t, sort.IntsAreSorted(nums), "numbers must be sorted: %v", nums)
}
