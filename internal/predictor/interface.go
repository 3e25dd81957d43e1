package predictor

import (
	"fmt"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
)

// Predictor 学习型预测算法接口
type Predictor interface {
	// Predict 根据历史数据生成一组建议
	Predict(history *database.History, game config.Game) (*database.Suggestion, error)

	// GetName 获取算法名称（同时作为建议的生成方式标签）
	GetName() string

	// GetVersion 获取算法版本
	GetVersion() string

	// ValidateInput 验证输入数据
	ValidateInput(history *database.History, game config.Game) error

	// GetRequiredHistorySize 获取所需的历史数据大小
	GetRequiredHistorySize(game config.Game) int
}

// ModelResult 单个预测器的结果，失败时Err非空
type ModelResult struct {
	Method     string
	Suggestion *database.Suggestion
	Err        error
}

// PredictorManager 预测器管理器，按注册顺序运行
type PredictorManager struct {
	predictors map[string]Predictor
	order      []string
}

// NewPredictorManager 创建新的预测器管理器并注册默认预测器
func NewPredictorManager() *PredictorManager {
	manager := &PredictorManager{
		predictors: make(map[string]Predictor),
	}

	manager.RegisterPredictor(NewSumRegressionPredictor())
	manager.RegisterPredictor(NewMultiLabelPredictor())
	manager.RegisterPredictor(NewLinearSumPredictor())

	return manager
}

// RegisterPredictor 注册预测器，同名时替换
func (pm *PredictorManager) RegisterPredictor(predictor Predictor) {
	name := predictor.GetName()
	if _, exists := pm.predictors[name]; !exists {
		pm.order = append(pm.order, name)
	}
	pm.predictors[name] = predictor
}

// GetPredictor 按名称获取预测器
func (pm *PredictorManager) GetPredictor(name string) (Predictor, error) {
	predictor, exists := pm.predictors[name]
	if !exists {
		return nil, fmt.Errorf("predictor not found: %s", name)
	}
	return predictor, nil
}

// GetAvailablePredictors 获取可用的预测器列表
func (pm *PredictorManager) GetAvailablePredictors() []string {
	names := make([]string, len(pm.order))
	copy(names, pm.order)
	return names
}

// Predict 使用指定预测器进行预测
func (pm *PredictorManager) Predict(name string, history *database.History, game config.Game) (*database.Suggestion, error) {
	predictor, err := pm.GetPredictor(name)
	if err != nil {
		return nil, err
	}
	return predictor.Predict(history, game)
}

// PredictAll 依次运行全部预测器，单个失败不影响其余
func (pm *PredictorManager) PredictAll(history *database.History, game config.Game) []ModelResult {
	results := make([]ModelResult, 0, len(pm.order))
	for _, name := range pm.order {
		s, err := pm.predictors[name].Predict(history, game)
		results = append(results, ModelResult{Method: name, Suggestion: s, Err: err})
	}
	return results
}
