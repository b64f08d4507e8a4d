// Package ratelimit 提供基于 Redis GCRA 的分布式限流
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RateLimiter 限流器接口
type RateLimiter interface {
	// Allow 检查 key 在给定规则下是否允许通过
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// Limit 限流规则
type Limit struct {
	Rate   int
	Period time.Duration
	Burst  int
}

// PerSecond 每秒 rate 次、突发 burst 次的规则
func PerSecond(rate, burst int) Limit {
	if burst < rate {
		burst = rate
	}
	return Limit{Rate: rate, Period: time.Second, Burst: burst}
}

// Result 限流检查结果
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
	// Backend 实际作出判定的限流器：redis 或 local
	Backend string
	// FallbackErr Redis 失败而退回 fallback 时的原始错误
	FallbackErr error
}

const (
	BackendRedis = "redis"
	BackendLocal = "local"
)

// RedisRateLimiter 基于 Redis GCRA 的 RateLimiter 实现
// 所有 key 加上 prefix，多个实例共享同一 Redis 时互不干扰；
// 调用 Redis 失败且配置了 fallback 时改由 fallback 判定，并在 FallbackErr 中记录原因。
type RedisRateLimiter struct {
	limiter  *redis_rate.Limiter
	prefix   string
	fallback RateLimiter
}

// NewRedisRateLimiter 创建 RedisRateLimiter，fallback 可以为 nil
func NewRedisRateLimiter(rdb *redis.Client, prefix string, fallback RateLimiter) *RedisRateLimiter {
	return &RedisRateLimiter{limiter: redis_rate.NewLimiter(rdb), prefix: prefix, fallback: fallback}
}

// Allow 检查 prefix+key 是否允许通过
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	res, err := r.limiter.Allow(ctx, r.prefix+key, redis_rate.Limit{
		Rate:   limit.Rate,
		Period: limit.Period,
		Burst:  limit.Burst,
	})
	if err != nil {
		if r.fallback == nil {
			return nil, fmt.Errorf("rate limit check failed: %w", err)
		}
		fb, fbErr := r.fallback.Allow(ctx, key, limit)
		if fbErr != nil {
			return nil, fmt.Errorf("rate limit check failed: %w", errors.Join(err, fbErr))
		}
		fb.Backend = BackendLocal
		fb.FallbackErr = err
		return fb, nil
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
		RetryAfter: res.RetryAfter,
		Backend:    BackendRedis,
	}, nil
}
