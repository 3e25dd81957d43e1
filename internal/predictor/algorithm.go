package predictor

import (
	"fmt"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	apperrors "loterias-bot/internal/errors"
	"loterias-bot/internal/logger"
)

type basePredictor struct {
	name    string
	version string
}

// GetName 获取算法名称
func (bp *basePredictor) GetName() string {
	return bp.name
}

// GetVersion 获取算法版本
func (bp *basePredictor) GetVersion() string {
	return bp.version
}

// validateHistory 检查期数并逐期校验号码
func validateHistory(name string, history *database.History, game config.Game, required int) error {
	if history.Len() < required {
		return apperrors.NewInsufficientData(name, required, history.Len())
	}

	min, max := game.Range()
	for i, d := range history.Draws {
		var err error
		if cg, ok := game.(config.IsColumnar); ok {
			err = database.ValidateColumns(d.Numbers, cg.Columns(), min, max)
		} else {
			err = database.ValidateSet(d.Numbers, game.NumBalls(), min, max)
		}
		if err != nil {
			return fmt.Errorf("invalid draw in history[%d] (contest %d): %w", i, d.Contest, err)
		}
	}
	return nil
}

// SumRegressionPredictor 和值回归预测器
type SumRegressionPredictor struct {
	basePredictor
	model *SumRegressor
}

// NewSumRegressionPredictor 创建和值回归预测器
func NewSumRegressionPredictor() *SumRegressionPredictor {
	return &SumRegressionPredictor{
		basePredictor: basePredictor{name: database.MethodSumRegression, version: "v1.0"},
		model:         NewSumRegressor(),
	}
}

// GetRequiredHistorySize 获取所需的历史数据大小
func (p *SumRegressionPredictor) GetRequiredHistorySize(config.Game) int {
	return RegressionMinHistory
}

// ValidateInput 验证输入数据
func (p *SumRegressionPredictor) ValidateInput(history *database.History, game config.Game) error {
	if err := requireSetGame(game, "sum regression"); err != nil {
		return err
	}
	return validateHistory(p.name, history, game, p.GetRequiredHistorySize(game))
}

// Predict 根据历史数据进行预测
func (p *SumRegressionPredictor) Predict(history *database.History, game config.Game) (*database.Suggestion, error) {
	if err := p.ValidateInput(history, game); err != nil {
		return nil, err
	}
	s, err := p.model.Suggest(history.Table(), game)
	if err != nil {
		return nil, err
	}
	FillAuxiliary(s, history, game, NewSeededSource(p.model.FillSeed))
	logger.WithGame(game.Key()).Infof("Prediction generated by %s: %s", p.name, database.FormatNumbers(s.Numbers))
	return s, nil
}

// LinearSumPredictor 最小二乘和值基线
type LinearSumPredictor struct {
	basePredictor
	model *LinearSumModel
}

// NewLinearSumPredictor 创建线性和值预测器
func NewLinearSumPredictor() *LinearSumPredictor {
	return &LinearSumPredictor{
		basePredictor: basePredictor{name: database.MethodLinearSum, version: "v1.0"},
		model:         &LinearSumModel{},
	}
}

// GetRequiredHistorySize 获取所需的历史数据大小
func (p *LinearSumPredictor) GetRequiredHistorySize(game config.Game) int {
	return p.model.RequiredHistory(game)
}

// ValidateInput 验证输入数据
func (p *LinearSumPredictor) ValidateInput(history *database.History, game config.Game) error {
	if err := requireSetGame(game, "linear sum"); err != nil {
		return err
	}
	return validateHistory(p.name, history, game, p.GetRequiredHistorySize(game))
}

// Predict 根据历史数据进行预测
func (p *LinearSumPredictor) Predict(history *database.History, game config.Game) (*database.Suggestion, error) {
	if err := p.ValidateInput(history, game); err != nil {
		return nil, err
	}
	s, err := p.model.Suggest(history.Table(), game)
	if err != nil {
		return nil, err
	}
	FillAuxiliary(s, history, game, NewSeededSource(p.model.FillSeed))
	logger.WithGame(game.Key()).Infof("Prediction generated by %s: %s", p.name, database.FormatNumbers(s.Numbers))
	return s, nil
}

// MultiLabelPredictor 多标签分类预测器
type MultiLabelPredictor struct {
	basePredictor
	model *MultiLabelClassifier
}

// NewMultiLabelPredictor 创建多标签预测器
func NewMultiLabelPredictor() *MultiLabelPredictor {
	return &MultiLabelPredictor{
		basePredictor: basePredictor{name: database.MethodMultiLabel, version: "v1.0"},
		model:         NewMultiLabelClassifier(),
	}
}

// GetRequiredHistorySize 获取所需的历史数据大小
func (p *MultiLabelPredictor) GetRequiredHistorySize(config.Game) int {
	return MultiLabelMinHistory
}

// ValidateInput 验证输入数据
func (p *MultiLabelPredictor) ValidateInput(history *database.History, game config.Game) error {
	if err := requireSetGame(game, "multi-label"); err != nil {
		return err
	}
	return validateHistory(p.name, history, game, p.GetRequiredHistorySize(game))
}

// Predict 根据历史数据进行预测
func (p *MultiLabelPredictor) Predict(history *database.History, game config.Game) (*database.Suggestion, error) {
	if err := p.ValidateInput(history, game); err != nil {
		return nil, err
	}
	s, err := p.model.Suggest(history.Table(), game)
	if err != nil {
		return nil, err
	}
	FillAuxiliary(s, history, game, NewSeededSource(p.model.FillSeed))
	logger.WithGame(game.Key()).Infof("Prediction generated by %s: %s", p.name, database.FormatNumbers(s.Numbers))
	return s, nil
}
