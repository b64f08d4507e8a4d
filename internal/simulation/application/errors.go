package application

import "errors"

var (
	// ErrSimulationNotFound 会话不存在
	ErrSimulationNotFound = errors.New("simulation not found")
	// ErrTooManySessions 会话数达到上限
	ErrTooManySessions = errors.New("too many simulation sessions")
	// ErrBatchTooLarge 批次超过允许的最大路径数
	ErrBatchTooLarge = errors.New("batch size exceeds limit")
	// ErrTimeStepsTooFew 时间步数低于服务允许的下限
	ErrTimeStepsTooFew = errors.New("time steps below minimum")
	// ErrPercentileUnavailable 仍在跟踪阶段或档位不受支持
	ErrPercentileUnavailable = errors.New("percentile path not available")
	// ErrInvalidTarget RunUntil 的目标路径数必须为正
	ErrInvalidTarget = errors.New("target simulation count must be positive")
	// ErrUnknownGenerator 不支持的随机数生成器
	ErrUnknownGenerator = errors.New("unknown random generator")
)
