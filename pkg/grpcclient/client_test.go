package grpcclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryClientInterceptor_Retries(t *testing.T) {
	interceptor := unaryClientInterceptor(ClientConfig{MaxRetries: 2, RetryDelay: 1})

	calls := 0
	invoker := func(context.Context, string, any, any, *grpc.ClientConn, ...grpc.CallOption) error {
		calls++
		if calls < 3 {
			return status.Error(codes.Unavailable, "try again")
		}
		return nil
	}

	require.NoError(t, interceptor(context.Background(), "/svc/M", nil, nil, nil, invoker))
	assert.Equal(t, 3, calls)
}

func TestUnaryClientInterceptor_NoRetryOnClientError(t *testing.T) {
	interceptor := unaryClientInterceptor(ClientConfig{MaxRetries: 5, RetryDelay: 1})

	calls := 0
	invoker := func(context.Context, string, any, any, *grpc.ClientConn, ...grpc.CallOption) error {
		calls++
		return status.Error(codes.InvalidArgument, "bad")
	}

	err := interceptor(context.Background(), "/svc/M", nil, nil, nil, invoker)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, 1, calls)
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, shouldRetry(codes.Unavailable))
	assert.True(t, shouldRetry(codes.DeadlineExceeded))
	assert.False(t, shouldRetry(codes.ResourceExhausted))
	assert.False(t, shouldRetry(codes.NotFound))
}

func TestNewClient(t *testing.T) {
	conn, err := NewClient(ClientConfig{Target: "passthrough:///localhost:0", ConnTimeout: 1, EnableKeepalive: true, KeepaliveInterval: 30})
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}
