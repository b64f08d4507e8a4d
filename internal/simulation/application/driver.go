package application

import (
	"context"
	"time"
)

// BatchFunc 执行一个批次并返回执行后的状态
type BatchFunc func(ctx context.Context, batchSize int) (*SimulationDTO, error)

// ProgressFunc 每个批次完成后的回调
type ProgressFunc func(*SimulationDTO)

// Runner 按帧节奏循环执行批次
// 取消只在批次之间生效，正在执行的批次总会完成。
type Runner struct {
	interval  time.Duration
	batchSize int
}

// NewRunner 创建 Runner，interval 为 0 时批次之间不等待
func NewRunner(interval time.Duration, batchSize int) *Runner {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Runner{interval: interval, batchSize: batchSize}
}

// Run 从 current 条路径开始循环执行批次，直至达到 target
// 最后一个批次会截断到恰好达到 target；未执行任何批次时返回 nil。
func (r *Runner) Run(ctx context.Context, current, target int, batch BatchFunc, progress ProgressFunc) (*SimulationDTO, error) {
	var ticker *time.Ticker
	if r.interval > 0 {
		ticker = time.NewTicker(r.interval)
		defer ticker.Stop()
	}

	var last *SimulationDTO
	for current < target {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		n := min(r.batchSize, target-current)
		dto, err := batch(ctx, n)
		if err != nil {
			return last, err
		}
		last = dto
		current = dto.SimulationCount
		if progress != nil {
			progress(dto)
		}

		if ticker != nil && current < target {
			select {
			case <-ctx.Done():
				return last, ctx.Err()
			case <-ticker.C:
			}
		}
	}
	return last, nil
}
