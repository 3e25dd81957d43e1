package predictor

import (
	"context"
	"fmt"
	"sort"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	apperrors "loterias-bot/internal/errors"
	"loterias-bot/internal/logger"
)

// DefaultMaxValidations 前向验证允许的最大步数
const DefaultMaxValidations = 30

// Accuracy 命中比例 |suggestion ∩ actual| / |actual|，actual为空时为0
func Accuracy(suggestion, actual []int) float64 {
	if len(actual) == 0 {
		return 0
	}

	want := make(map[int]bool, len(actual))
	for _, n := range actual {
		want[n] = true
	}
	hits := 0
	for _, n := range uniq(suggestion) {
		if want[n] {
			hits++
		}
	}
	return float64(hits) / float64(len(actual))
}

// HasOccurred 历史中是否存在与建议完全相同的号码组合（忽略顺序）
func HasOccurred(suggestion []int, history [][]int) bool {
	target := database.SortedCopy(suggestion)
	for _, draw := range history {
		if len(draw) != len(target) {
			continue
		}
		if equalInts(database.SortedCopy(draw), target) {
			return true
		}
	}
	return false
}

// Score 对建议相对某一期开奖打分，不修改建议本身
func Score(s *database.Suggestion, actual []int, history [][]int) database.ScoredSuggestion {
	return database.ScoredSuggestion{
		Suggestion:      s,
		Accuracy:        Accuracy(s.Numbers, actual),
		AlreadyOccurred: HasOccurred(s.Numbers, history),
	}
}

// Validator 多标签模型的前向（walk-forward）验证
type Validator struct {
	Classifier     *MultiLabelClassifier
	MaxValidations int
}

// NewValidator 创建验证器
func NewValidator(maxValidations int) *Validator {
	if maxValidations <= 0 {
		maxValidations = DefaultMaxValidations
	}
	return &Validator{
		Classifier:     NewMultiLabelClassifier(),
		MaxValidations: maxValidations,
	}
}

// ValidateMultiLabel 使用默认参数执行n步前向验证
func ValidateMultiLabel(ctx context.Context, table [][]int, game config.Game, n int) ([]database.BacktestEntry, error) {
	return NewValidator(DefaultMaxValidations).Validate(ctx, table, game, n)
}

// Validate 第i步(i=n..1)只用前N-i期训练，预测第N-i期之后的一期并与实际开奖比较
func (v *Validator) Validate(ctx context.Context, table [][]int, game config.Game, n int) ([]database.BacktestEntry, error) {
	if err := requireSetGame(game, "walk-forward validation"); err != nil {
		return nil, err
	}
	if n < 1 || n > v.MaxValidations {
		return nil, apperrors.NewConfiguration(game.Key(), "validations",
			fmt.Sprintf("must be between 1 and %d, got %d", v.MaxValidations, n))
	}

	total := len(table)
	if total-n < MultiLabelMinHistory {
		return nil, apperrors.NewInsufficientData(database.MethodBacktest, MultiLabelMinHistory+n, total)
	}
	if err := checkTable(table, game); err != nil {
		return nil, err
	}

	log := logger.WithGame(game.Key())
	log.Infof("Starting walk-forward validation: %d steps over %d draws", n, total)

	min, max := game.Range()
	k := game.NumBalls()
	entries := make([]database.BacktestEntry, 0, n)

	for i := n; i >= 1; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		testIndex := total - i
		targetIndex := testIndex + 1
		if targetIndex >= total {
			targetIndex = total - 1
		}

		probs, err := v.Classifier.Probabilities(table[:testIndex], table[testIndex], game)
		if err != nil {
			return nil, fmt.Errorf("validation step %d: %w", n-i+1, err)
		}
		numbers := fillRandom(topK(probs, k, min), k, min, max, NewSeededSource(v.Classifier.FillSeed))
		suggestion := database.NewSuggestion(game.Key(), database.MethodBacktest, numbers)

		actual := append([]int(nil), table[targetIndex]...)
		entry := database.BacktestEntry{
			Step:            n - i + 1,
			TrainEnd:        testIndex - 1,
			TestIndex:       testIndex,
			TargetIndex:     targetIndex,
			Suggestion:      suggestion,
			Actual:          actual,
			Score:           Accuracy(numbers, actual) * 100,
			AlreadyOccurred: HasOccurred(numbers, table),
		}
		entries = append(entries, entry)

		log.Debugf("Validation step %d: train [0,%d) predict %d vs %d -> %.1f%%",
			entry.Step, testIndex, testIndex, targetIndex, entry.Score)
	}

	log.Infof("Walk-forward validation completed: %d steps", len(entries))
	return entries, nil
}

// RankBacktest 未出现过的组合排在前面，组内按得分降序，原顺序稳定
func RankBacktest(entries []database.BacktestEntry) []database.BacktestEntry {
	ranked := make([]database.BacktestEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].AlreadyOccurred != ranked[j].AlreadyOccurred {
			return !ranked[i].AlreadyOccurred
		}
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func uniq(nums []int) []int {
	seen := make(map[int]bool, len(nums))
	out := make([]int, 0, len(nums))
	for _, n := range nums {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
