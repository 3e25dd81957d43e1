package predictor

import (
	"fmt"
	"sort"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	apperrors "loterias-bot/internal/errors"
	"loterias-bot/internal/logger"
	"loterias-bot/internal/neural"
)

// MultiLabelMinHistory 多标签分类所需的最少期数
const MultiLabelMinHistory = 20

// MultiLabelClassifier 用上一期号码预测下一期每个号码出现的概率
type MultiLabelClassifier struct {
	Network  neural.Config
	FillSeed int64
}

// NewMultiLabelClassifier 创建多标签分类器
func NewMultiLabelClassifier() *MultiLabelClassifier {
	return &MultiLabelClassifier{Network: neural.ClassifierConfig()}
}

// GenerateMultiLabelSuggestion 使用默认参数的多标签分类生成一组建议
func GenerateMultiLabelSuggestion(table [][]int, game config.Game) (*database.Suggestion, error) {
	return NewMultiLabelClassifier().Suggest(table, game)
}

// Suggest 用全部样本训练，取最近一期之后概率最高的num_bolas个号码
func (m *MultiLabelClassifier) Suggest(table [][]int, game config.Game) (*database.Suggestion, error) {
	if err := requireSetGame(game, "multi-label"); err != nil {
		return nil, err
	}
	if len(table) < MultiLabelMinHistory {
		return nil, apperrors.NewInsufficientData(database.MethodMultiLabel, MultiLabelMinHistory, len(table))
	}
	if err := checkTable(table, game); err != nil {
		return nil, err
	}

	probs, err := m.Probabilities(table, table[len(table)-1], game)
	if err != nil {
		return nil, err
	}

	min, max := game.Range()
	k := game.NumBalls()
	numbers := fillRandom(topK(probs, k, min), k, min, max, NewSeededSource(m.FillSeed))

	logger.WithGame(game.Key()).Debugf("Multi-label top %d -> %v", k, numbers)
	return database.NewSuggestion(game.Key(), database.MethodMultiLabel, numbers), nil
}

// Probabilities 用train中相邻两期构成的样本训练，返回query之后各号码出现的概率
func (m *MultiLabelClassifier) Probabilities(train [][]int, query []int, game config.Game) ([]float64, error) {
	min, max := game.Range()
	if len(train) < 2 {
		return nil, apperrors.NewInsufficientData(database.MethodMultiLabel, 2, len(train))
	}

	x, y := multiLabelSamples(train, min, max)

	net, err := neural.New(m.Network, game.NumBalls(), max-min+1)
	if err != nil {
		return nil, fmt.Errorf("failed to build multi-label classifier: %w", err)
	}
	if err := net.Fit(x, y); err != nil {
		return nil, fmt.Errorf("failed to train multi-label classifier: %w", err)
	}

	probs, err := net.PredictRow(scaleRow(query, min, max))
	if err != nil {
		return nil, fmt.Errorf("failed to score draw: %w", err)
	}
	return probs, nil
}

// topK 概率最高的k个号码，概率相同时号码小的优先
func topK(probs []float64, k, min int) []int {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return probs[idx[a]] > probs[idx[b]]
	})

	if k > len(idx) {
		k = len(idx)
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = idx[i] + min
	}
	return out
}
