package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/wyfcoding/heston/internal/simulation/application"
	"github.com/wyfcoding/heston/internal/simulation/domain"
	"github.com/wyfcoding/heston/internal/simulation/infrastructure/publisher"
	grpchandler "github.com/wyfcoding/heston/internal/simulation/interfaces/grpc"
	httphandler "github.com/wyfcoding/heston/internal/simulation/interfaces/http"
	"github.com/wyfcoding/heston/pkg/cache"
	"github.com/wyfcoding/heston/pkg/config"
	"github.com/wyfcoding/heston/pkg/logger"
	"github.com/wyfcoding/heston/pkg/metrics"
	"github.com/wyfcoding/heston/pkg/middleware"
	"github.com/wyfcoding/heston/pkg/mq"
	"github.com/wyfcoding/heston/pkg/ratelimit"
	"github.com/wyfcoding/heston/pkg/trace"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC simulation service",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting HestonService",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 1. 初始化追踪
	if cfg.Tracing.Enabled {
		shutdown, err := trace.InitTracer(ctx, cfg.ServiceName, cfg.Tracing.CollectorEndpoint, cfg.Tracing.SampleRatio)
		if err != nil {
			logger.Error(ctx, "Failed to initialize tracer", "error", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error(ctx, "Failed to shutdown tracer", "error", err)
				}
			}()
			logger.Info(ctx, "Tracer initialized", "endpoint", cfg.Tracing.CollectorEndpoint)
		}
	}

	// 2. 初始化指标
	m := metrics.New(cfg.ServiceName)

	// 3. 初始化事件发布
	var eventPublisher domain.EventPublisher = publisher.NewLogEventPublisher()
	if cfg.Kafka.Enabled {
		producer := mq.NewProducer(cfg.Kafka)
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Error(ctx, "Failed to close Kafka producer", "error", err)
			}
		}()
		eventPublisher = publisher.NewKafkaEventPublisher(producer, cfg.ServiceName, publisher.BreakerSettings{
			Failures: uint32(cfg.Kafka.BreakerFailures),
			Timeout:  time.Duration(cfg.Kafka.BreakerTimeout) * time.Second,
		})
	}

	// 4. 初始化限流器
	limiter, closeLimiter := newRateLimiter(ctx, cfg)
	defer closeLimiter()

	// 5. 初始化应用服务
	svc := application.NewSimulationService(cfg.Simulation, eventPublisher, m)

	httpServer := createHTTPServer(cfg, svc, m, limiter)
	grpcServer, grpcHandler := createGRPCServer(svc, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(ctx, "Starting HTTP server", "addr", cfg.HTTP.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if cfg.GRPC.Enabled {
		g.Go(func() error {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr())
			if err != nil {
				return fmt.Errorf("failed to listen on gRPC address: %w", err)
			}
			logger.Info(ctx, "Starting gRPC server", "addr", cfg.GRPC.Addr())
			return grpcServer.Serve(lis)
		})
	}

	// 6. 优雅关停
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "Shutting down HestonService")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
		grpcHandler.Shutdown()
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info(ctx, "HestonService stopped")
	return nil
}

const rateLimitKeyPrefix = "heston:ratelimit:"

// newRateLimiter 优先使用 Redis 限流，Redis 不可用时退回进程内限流
func newRateLimiter(ctx context.Context, cfg *config.Config) (ratelimit.RateLimiter, func()) {
	noop := func() {}
	if !cfg.RateLimit.Enabled {
		return nil, noop
	}

	rdb, err := cache.NewClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn(ctx, "Redis unavailable, using local rate limiter", "error", err)
		return ratelimit.NewLocalRateLimiter(), noop
	}
	return ratelimit.NewRedisRateLimiter(rdb, rateLimitKeyPrefix, ratelimit.NewLocalRateLimiter()), func() { closeRedis(ctx, rdb) }
}

func closeRedis(ctx context.Context, rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		logger.Error(ctx, "Failed to close Redis client", "error", err)
	}
}

// createHTTPServer 创建 HTTP 服务器
func createHTTPServer(cfg *config.Config, svc *application.SimulationService, m *metrics.Metrics, limiter ratelimit.RateLimiter) *http.Server {
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.GinLogging())
	router.Use(middleware.GinRecovery())
	router.Use(middleware.GinCORS())
	router.Use(middleware.GinMetrics(m))
	router.Use(middleware.RateLimit(limiter, cfg.RateLimit, m))

	httphandler.NewHandler(router, svc)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}

	return &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}

// createGRPCServer 创建 gRPC 服务器
func createGRPCServer(svc *application.SimulationService, m *metrics.Metrics) (*grpc.Server, *grpchandler.Server) {
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			middleware.GRPCRecovery(),
			middleware.GRPCLogging(),
			middleware.GRPCMetrics(m),
		),
	)
	handler := grpchandler.NewServer(server, svc)
	return server, handler
}
