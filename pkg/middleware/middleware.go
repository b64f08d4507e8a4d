// Package middleware 提供 Gin 与 gRPC 的通用中间件（日志、trace、panic recover、指标、限流）
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/wyfcoding/heston/pkg/logger"
	"github.com/wyfcoding/heston/pkg/metrics"
)

// RequestIDKey gin context 中 request ID 的键
const RequestIDKey = "request_id"

// TraceHeader 透传 trace ID 的请求头
const TraceHeader = "X-Trace-ID"

// GinLogging Gin 日志中间件，为每个请求生成 request/trace/span ID
func GinLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		traceID, spanID := traceIDs(c.Request.Context(), c.GetHeader(TraceHeader))

		ctx := logger.ContextWithTrace(c.Request.Context(), traceID, spanID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(RequestIDKey, requestID)
		c.Header(TraceHeader, traceID)

		start := time.Now()
		c.Next()

		logger.Info(ctx, "HTTP request completed",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status_code", c.Writer.Status(),
			"response_size", c.Writer.Size(),
			"client_ip", c.ClientIP(),
			"duration", time.Since(start),
		)
	}
}

// GinRecovery Gin panic 恢复中间件
func GinRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID, _ := c.Get(RequestIDKey)
				logger.Error(c.Request.Context(), "HTTP request panicked", "request_id", requestID, "panic", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      "Internal server error",
					"request_id": requestID,
				})
			}
		}()
		c.Next()
	}
}

// GinCORS Gin CORS 中间件
func GinCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Authorization, X-Requested-With, "+TraceHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// GinMetrics 记录 HTTP 请求计数与耗时
func GinMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// GRPCLogging gRPC 日志拦截器，从 metadata 读取 x-trace-id
func GRPCLogging() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		incoming := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("x-trace-id"); len(vals) > 0 {
				incoming = vals[0]
			}
		}
		traceID, spanID := traceIDs(ctx, incoming)
		ctx = logger.ContextWithTrace(ctx, traceID, spanID)

		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			st, _ := status.FromError(err)
			logger.Warn(ctx, "gRPC request failed",
				"method", info.FullMethod,
				"error_code", st.Code().String(),
				"error_message", st.Message(),
				"duration", time.Since(start),
			)
		} else {
			logger.Info(ctx, "gRPC request completed", "method", info.FullMethod, "duration", time.Since(start))
		}
		return resp, err
	}
}

// GRPCMetrics 记录 gRPC 请求计数
func GRPCMetrics(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		m.GRPCRequestsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}

// GRPCRecovery gRPC panic 恢复拦截器，panic 转换为 codes.Internal
func GRPCRecovery() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, "gRPC request panicked", "method", info.FullMethod, "panic", r)
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// traceIDs 优先使用 OpenTelemetry span 上下文，其次是请求携带的 trace ID，最后随机生成
func traceIDs(ctx context.Context, incoming string) (string, string) {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String(), sc.SpanID().String()
	}
	if incoming == "" {
		incoming = uuid.NewString()
	}
	return incoming, uuid.NewString()
}
