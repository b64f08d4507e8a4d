package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/heston/pkg/config"
	"github.com/wyfcoding/heston/pkg/logger"
	"github.com/wyfcoding/heston/pkg/metrics"
	"github.com/wyfcoding/heston/pkg/ratelimit"
)

// RateLimit 按客户端 IP 限流的 Gin 中间件，限流器出错时放行
// m 非空时按判定后端统计被拒绝的请求。
func RateLimit(limiter ratelimit.RateLimiter, cfg config.RateLimitConfig, m *metrics.Metrics) gin.HandlerFunc {
	limit := ratelimit.PerSecond(cfg.QPS, cfg.Burst)
	return func(c *gin.Context) {
		if !cfg.Enabled || limiter == nil {
			c.Next()
			return
		}

		res, err := limiter.Allow(c.Request.Context(), c.ClientIP(), limit)
		if err != nil {
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if res.FallbackErr != nil {
			logger.Warn(c.Request.Context(), "redis rate limiter failed, using local limiter", "error", res.FallbackErr)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(res.ResetAfter/time.Second), 10))

		if !res.Allowed {
			m.RejectRequest(res.Backend)
			c.Header("Retry-After", strconv.FormatInt(int64(res.RetryAfter/time.Second), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too Many Requests",
				"retry_after": res.RetryAfter.String(),
			})
			return
		}
		c.Next()
	}
}
