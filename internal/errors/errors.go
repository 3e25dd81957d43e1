package errors

import (
	stderrors "errors"
	"fmt"
)

// InsufficientDataError 历史数据不足以训练或生成
type InsufficientDataError struct {
	Model    string
	Required int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient history for %s: need at least %d draws, got %d",
		e.Model, e.Required, e.Got)
}

// ConfigurationError 游戏配置缺失或不合法
type ConfigurationError struct {
	Game   string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration for game %s: %s", e.Game, e.Reason)
	}
	return fmt.Sprintf("invalid configuration for game %s: %s: %s", e.Game, e.Field, e.Reason)
}

// DataUnavailableError 数据源无法提供历史数据
type DataUnavailableError struct {
	Variant string
	Cause   error
}

func (e *DataUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("draw history unavailable for %s: %v", e.Variant, e.Cause)
	}
	return fmt.Sprintf("draw history unavailable for %s", e.Variant)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Cause
}

// NewInsufficientData 创建数据不足错误
func NewInsufficientData(model string, required, got int) error {
	return &InsufficientDataError{Model: model, Required: required, Got: got}
}

// NewConfiguration 创建配置错误
func NewConfiguration(game, field, reason string) error {
	return &ConfigurationError{Game: game, Field: field, Reason: reason}
}

// NewDataUnavailable 创建数据不可用错误
func NewDataUnavailable(variant string, cause error) error {
	return &DataUnavailableError{Variant: variant, Cause: cause}
}

// IsInsufficientData 判断是否为数据不足错误
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return stderrors.As(err, &target)
}

// IsConfiguration 判断是否为配置错误
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return stderrors.As(err, &target)
}

// IsDataUnavailable 判断是否为数据不可用错误
func IsDataUnavailable(err error) bool {
	var target *DataUnavailableError
	return stderrors.As(err, &target)
}

// AsInsufficientData 提取数据不足错误详情
func AsInsufficientData(err error) (*InsufficientDataError, bool) {
	var target *InsufficientDataError
	if stderrors.As(err, &target) {
		return target, true
	}
	return nil, false
}
