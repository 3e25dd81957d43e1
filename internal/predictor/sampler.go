package predictor

import (
	"math/rand"
	"sort"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	"loterias-bot/internal/logger"
)

const (
	// DefaultSuggestionCount 默认生成的统计建议数量
	DefaultSuggestionCount = 5
	// MaxSampleAttempts 约束抽样的最大尝试次数
	MaxSampleAttempts = 100

	poolFactor    = 3
	columnPool    = 3
	minEachParity = 2
)

// RandomSource 随机数来源，测试中可注入固定序列
type RandomSource interface {
	Intn(n int) int
}

// NewSeededSource 创建固定种子的随机数来源
func NewSeededSource(seed int64) RandomSource {
	return rand.New(rand.NewSource(seed))
}

// Sample 一次抽样结果
type Sample struct {
	Suggestion *database.Suggestion
	// Constrained 约束阶段是否独立完成（未使用随机补齐）
	Constrained bool
}

// StatisticalGenerator 基于频率和和值分布的约束抽样器
type StatisticalGenerator struct {
	NewSource   func(seed int64) RandomSource
	MaxAttempts int
	// BaseSeed 第i组建议使用 BaseSeed+i
	BaseSeed int64
}

// NewStatisticalGenerator 创建使用固定种子的抽样器
func NewStatisticalGenerator() *StatisticalGenerator {
	return &StatisticalGenerator{
		NewSource:   NewSeededSource,
		MaxAttempts: MaxSampleAttempts,
	}
}

// GenerateStatisticalSuggestions 生成count组统计建议，第i组使用种子i
func GenerateStatisticalSuggestions(freq *FrequencyTable, game config.Game, moments Moments, count int) []*database.Suggestion {
	samples := NewStatisticalGenerator().Generate(freq, game, moments, count)
	out := make([]*database.Suggestion, len(samples))
	for i, s := range samples {
		out[i] = s.Suggestion
	}
	return out
}

// Generate 生成count组建议，count<=0时使用默认值
func (g *StatisticalGenerator) Generate(freq *FrequencyTable, game config.Game, moments Moments, count int) []Sample {
	if count <= 0 {
		count = DefaultSuggestionCount
	}

	samples := make([]Sample, 0, count)
	for seed := 0; seed < count; seed++ {
		rng := g.NewSource(g.BaseSeed + int64(seed))

		var sample Sample
		if cg, ok := game.(config.IsColumnar); ok {
			sample = g.sampleColumns(freq, cg, rng)
		} else {
			sample = g.sampleSet(freq, game, moments, rng)
		}
		samples = append(samples, sample)
	}

	constrained := 0
	for _, s := range samples {
		if s.Constrained {
			constrained++
		}
	}
	logger.WithGame(game.Key()).Debugf("Generated %d statistical suggestions (%d constrained)", len(samples), constrained)

	return samples
}

// sampleSet 从高频号码池中逐个抽取，只保留仍可能满足和值与奇偶约束的号码
func (g *StatisticalGenerator) sampleSet(freq *FrequencyTable, game config.Game, moments Moments, rng RandomSource) Sample {
	min, max := game.Range()
	size := game.NumBalls()
	if rangeSize := max - min + 1; size > rangeSize {
		size = rangeSize
	}

	pool := freq.Top(size * poolFactor)
	window := sumWindow{low: moments.Mean - moments.Std, high: moments.Mean + moments.Std}

	chosen := make([]int, 0, size)
	used := make(map[int]bool, size)
	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = MaxSampleAttempts
	}

	for attempt := 0; attempt < attempts && len(chosen) < size && len(pool) > 0; attempt++ {
		n := pool[rng.Intn(len(pool))]
		if used[n] {
			continue
		}
		candidate := append(append([]int(nil), chosen...), n)
		used[n] = true
		if plausible(candidate, pool, used, size, window) {
			chosen = candidate
		} else {
			delete(used, n)
		}
	}

	constrained := len(chosen) == size
	chosen = fillRandom(chosen, size, min, max, rng)

	return Sample{
		Suggestion:  database.NewSuggestion(game.Key(), database.MethodStatistical, chosen),
		Constrained: constrained,
	}
}

// sampleColumns 每列从该列出现最多的3个数字（只计出现过的）中随机选一个，保持列顺序
func (g *StatisticalGenerator) sampleColumns(freq *FrequencyTable, game config.IsColumnar, rng RandomSource) Sample {
	min, max := game.Range()
	digits := make([]int, game.Columns())
	for c := range digits {
		var top []int
		if c < len(freq.Columns) {
			col := freq.Columns[c]
			for _, d := range col.Top(columnPool) {
				if col.Count(d) > 0 {
					top = append(top, d)
				}
			}
		}
		if len(top) == 0 {
			digits[c] = min + rng.Intn(max-min+1)
			continue
		}
		digits[c] = top[rng.Intn(len(top))]
	}

	return Sample{
		Suggestion:  database.NewSuggestion(game.Key(), database.MethodStatistical, digits),
		Constrained: true,
	}
}

type sumWindow struct {
	low, high float64
}

// plausible 判断部分集合在用剩余池号码补满后是否仍可能落入和值窗口并满足奇偶要求
func plausible(candidate, pool []int, used map[int]bool, size int, window sumWindow) bool {
	remaining := size - len(candidate)

	unused := make([]int, 0, len(pool))
	for _, n := range pool {
		if !used[n] {
			unused = append(unused, n)
		}
	}
	if len(unused) < remaining {
		return false
	}
	sort.Ints(unused)

	partial := database.CalculateSum(candidate)
	low, high := partial, partial
	for i := 0; i < remaining; i++ {
		low += unused[i]
		high += unused[len(unused)-1-i]
	}
	if float64(high) < window.low || float64(low) > window.high {
		return false
	}

	evens := database.CountEven(candidate)
	odds := len(candidate) - evens
	return evens+remaining >= minEachParity && odds+remaining >= minEachParity
}

// fillRandom 用范围内均匀随机且不重复的号码补齐到size个，返回升序结果
func fillRandom(nums []int, size, min, max int, rng RandomSource) []int {
	out := make([]int, 0, size)
	seen := make(map[int]bool, size)
	for _, n := range nums {
		if n < min || n > max || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}

	if rangeSize := max - min + 1; size > rangeSize {
		size = rangeSize
	}
	for len(out) < size {
		n := min + rng.Intn(max-min+1)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}

	sort.Ints(out)
	return out
}
