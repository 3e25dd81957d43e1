package predictor

import (
	"fmt"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	apperrors "loterias-bot/internal/errors"
	"loterias-bot/internal/logger"

	"github.com/sajari/regression"
)

// LinearSumModel 和值回归的最小二乘基线，样本构造与SumRegressor相同
type LinearSumModel struct {
	FillSeed int64
}

// RequiredHistory 训练样本数需要多于特征数
func (l *LinearSumModel) RequiredHistory(game config.Game) int {
	required := game.NumBalls() + 3
	if required < RegressionMinHistory {
		required = RegressionMinHistory
	}
	return required
}

// Suggest 最小二乘拟合下一期和值并围绕其展开号码
func (l *LinearSumModel) Suggest(table [][]int, game config.Game) (*database.Suggestion, error) {
	if err := requireSetGame(game, "linear sum"); err != nil {
		return nil, err
	}
	required := l.RequiredHistory(game)
	if len(table) < required {
		return nil, apperrors.NewInsufficientData(database.MethodLinearSum, required, len(table))
	}
	if err := checkTable(table, game); err != nil {
		return nil, err
	}

	min, max := game.Range()
	n := len(table)

	var r regression.Regression
	r.SetObserved("next draw sum")
	for i := 0; i < game.NumBalls(); i++ {
		r.SetVar(i, fmt.Sprintf("ball %d", i+1))
	}
	for i := 0; i < n-2; i++ {
		r.Train(regression.DataPoint(float64(database.CalculateSum(table[i+1])), scaleRow(table[i], min, max)))
	}
	if err := r.Run(); err != nil {
		return nil, fmt.Errorf("linear sum fit failed: %w", err)
	}

	predicted, err := r.Predict(scaleRow(table[n-1], min, max))
	if err != nil {
		return nil, fmt.Errorf("linear sum prediction failed: %w", err)
	}

	k := game.NumBalls()
	numbers := fillRandom(spreadAround(predicted, k, min, max), k, min, max, NewSeededSource(l.FillSeed))

	logger.WithGame(game.Key()).Debugf("Linear sum predicted %.1f (R2=%.3f) -> %v", predicted, r.R2, numbers)
	return database.NewSuggestion(game.Key(), database.MethodLinearSum, numbers), nil
}
