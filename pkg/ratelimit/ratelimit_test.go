package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerSecond(t *testing.T) {
	assert.Equal(t, Limit{Rate: 10, Period: time.Second, Burst: 20}, PerSecond(10, 20))
	assert.Equal(t, 10, PerSecond(10, 5).Burst)
}

func TestLocalRateLimiter(t *testing.T) {
	l := NewLocalRateLimiter()
	ctx := context.Background()
	limit := Limit{Rate: 1, Period: time.Hour, Burst: 2}

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "client-a", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := l.Allow(ctx, "client-a", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	res, err = l.Allow(ctx, "client-b", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisRateLimiter_FallsBackToLocal(t *testing.T) {
	l := NewRedisRateLimiter(unreachableRedis(t), "heston:ratelimit:", NewLocalRateLimiter())
	limit := Limit{Rate: 1, Period: time.Hour, Burst: 1}

	res, err := l.Allow(context.Background(), "client-a", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, BackendLocal, res.Backend)
	assert.Error(t, res.FallbackErr)

	res, err = l.Allow(context.Background(), "client-a", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestRedisRateLimiter_NoFallback(t *testing.T) {
	l := NewRedisRateLimiter(unreachableRedis(t), "heston:ratelimit:", nil)
	_, err := l.Allow(context.Background(), "client-a", PerSecond(1, 1))
	assert.Error(t, err)
}
