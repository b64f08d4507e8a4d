package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalRateLimiter 进程内令牌桶限流，Redis 不可用时使用
type LocalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLocalRateLimiter 创建进程内限流器
func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{limiters: make(map[string]*rate.Limiter)}
}

// Allow 检查是否允许请求
func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit Limit) (*Result, error) {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		every := rate.Every(limit.Period / time.Duration(max(limit.Rate, 1)))
		lim = rate.NewLimiter(every, limit.Burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	now := time.Now()
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return &Result{Allowed: false, Backend: BackendLocal}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &Result{Allowed: false, RetryAfter: delay, Backend: BackendLocal}, nil
	}

	remaining := int(lim.TokensAt(now))
	return &Result{
		Allowed:    true,
		Remaining:  max(remaining, 0),
		ResetAfter: time.Duration(float64(limit.Burst-remaining) / float64(lim.Limit()) * float64(time.Second)),
		Backend:    BackendLocal,
	}, nil
}
