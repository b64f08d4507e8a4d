// Package grpcclient 提供 gRPC 客户端工厂，支持连接退避、keepalive、超时与重试拦截器
package grpcclient

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/wyfcoding/heston/pkg/logger"
)

// ClientConfig gRPC 客户端配置
type ClientConfig struct {
	// 目标地址
	Target string
	// 连接超时（秒）
	ConnTimeout int
	// 请求超时（秒），0 表示不限制
	RequestTimeout int
	// 最大重试次数
	MaxRetries int
	// 重试延迟（毫秒）
	RetryDelay int
	// 是否启用 keepalive
	EnableKeepalive bool
	// Keepalive 间隔（秒）
	KeepaliveInterval int
}

// NewClient 创建 gRPC 客户端连接，连接在首次调用时建立
func NewClient(cfg ClientConfig, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(64*1024*1024), // 百分位路径可能较大
		),
		grpc.WithUnaryInterceptor(unaryClientInterceptor(cfg)),
	}

	if cfg.ConnTimeout > 0 {
		opts = append(opts, grpc.WithConnectParams(grpc.ConnectParams{
			Backoff: backoff.Config{
				BaseDelay:  100 * time.Millisecond,
				MaxDelay:   time.Duration(cfg.ConnTimeout) * time.Second,
				Multiplier: 1.6,
				Jitter:     0.2,
			},
			MinConnectTimeout: time.Duration(cfg.ConnTimeout) * time.Second,
		}))
	}

	if cfg.EnableKeepalive {
		opts = append(opts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(cfg.KeepaliveInterval) * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}))
	}

	conn, err := grpc.NewClient(cfg.Target, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC client for %s: %w", cfg.Target, err)
	}
	logger.Debug(context.Background(), "gRPC client created", "target", cfg.Target)
	return conn, nil
}

// unaryClientInterceptor 一元 RPC 拦截器：请求超时与可重试错误的重试
func unaryClientInterceptor(cfg ClientConfig) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.RequestTimeout)*time.Second)
			defer cancel()
		}

		start := time.Now()
		var lastErr error
		for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
			err := invoker(ctx, method, req, reply, cc, opts...)
			if err == nil {
				logger.Debug(ctx, "gRPC request succeeded", "method", method, "attempts", attempt+1, "duration", time.Since(start))
				return nil
			}

			lastErr = err
			if !shouldRetry(status.Code(err)) || attempt >= cfg.MaxRetries {
				break
			}

			select {
			case <-time.After(time.Duration(cfg.RetryDelay) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		logger.Warn(ctx, "gRPC request failed", "method", method, "duration", time.Since(start), "error", lastErr)
		return lastErr
	}
}

// shouldRetry 判断是否应该重试
func shouldRetry(code codes.Code) bool {
	switch code {
	case codes.Unavailable, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}
