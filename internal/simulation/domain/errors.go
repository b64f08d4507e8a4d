package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig 配置参数不合法，所有 ConfigurationError 均可用 errors.Is 匹配
	ErrInvalidConfig = errors.New("invalid simulation config")
	// ErrNotInitialized 引擎尚未初始化
	ErrNotInitialized = errors.New("simulation engine not initialized")
	// ErrInvalidBatchSize 批次大小必须为正
	ErrInvalidBatchSize = errors.New("batch size must be positive")
)

// ConfigurationError 描述单个非法参数
type ConfigurationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s %s (got %v)", ErrInvalidConfig, e.Field, e.Reason, e.Value)
}

// Is 使 errors.Is(err, ErrInvalidConfig) 成立
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfig
}
