package predictor

import (
	"fmt"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	apperrors "loterias-bot/internal/errors"
	"loterias-bot/internal/logger"
	"loterias-bot/internal/neural"

	"gonum.org/v1/gonum/mat"
)

// RegressionMinHistory 和值回归所需的最少期数
const RegressionMinHistory = 10

// SumRegressor 用上一期号码预测下一期和值，再围绕预测和值展开号码
type SumRegressor struct {
	Network  neural.Config
	FillSeed int64
}

// NewSumRegressor 创建和值回归器
func NewSumRegressor() *SumRegressor {
	return &SumRegressor{Network: neural.RegressorConfig()}
}

// GenerateRegressionSuggestion 使用默认参数的和值回归生成一组建议
func GenerateRegressionSuggestion(table [][]int, game config.Game) (*database.Suggestion, error) {
	return NewSumRegressor().Suggest(table, game)
}

// Suggest 用除最近一对以外的样本训练，预测最近一期之后的和值
func (r *SumRegressor) Suggest(table [][]int, game config.Game) (*database.Suggestion, error) {
	if err := requireSetGame(game, "sum regression"); err != nil {
		return nil, err
	}
	if len(table) < RegressionMinHistory {
		return nil, apperrors.NewInsufficientData(database.MethodSumRegression, RegressionMinHistory, len(table))
	}
	if err := checkTable(table, game); err != nil {
		return nil, err
	}

	predicted, err := r.PredictSum(table, game)
	if err != nil {
		return nil, err
	}

	min, max := game.Range()
	k := game.NumBalls()
	numbers := fillRandom(spreadAround(predicted, k, min, max), k, min, max, NewSeededSource(r.FillSeed))

	logger.WithGame(game.Key()).Debugf("Sum regression predicted %.1f -> %v", predicted, numbers)
	return database.NewSuggestion(game.Key(), database.MethodSumRegression, numbers), nil
}

// PredictSum 训练网络并返回最近一期之后的预测和值
func (r *SumRegressor) PredictSum(table [][]int, game config.Game) (float64, error) {
	min, max := game.Range()
	n := len(table)

	x, sums := regressionSamples(table, min, max)
	scaler := fitStandardizer(sums)

	y := mat.NewDense(len(sums), 1, nil)
	for i, s := range sums {
		y.Set(i, 0, scaler.forward(s))
	}

	net, err := neural.New(r.Network, game.NumBalls(), 1)
	if err != nil {
		return 0, fmt.Errorf("failed to build sum regressor: %w", err)
	}
	if err := net.Fit(x, y); err != nil {
		return 0, fmt.Errorf("failed to train sum regressor: %w", err)
	}

	out, err := net.PredictRow(scaleRow(table[n-1], min, max))
	if err != nil {
		return 0, fmt.Errorf("failed to predict sum: %w", err)
	}
	return scaler.inverse(out[0]), nil
}
