// Package metrics 提供 Prometheus 指标集合：HTTP/gRPC 请求与蒙特卡洛模拟的业务指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec
	// gRPC 请求计数
	GRPCRequestsTotal *prometheus.CounterVec

	// 已模拟的路径总数
	PathsSimulated *prometheus.CounterVec
	// 已执行的批次数
	BatchesTotal prometheus.Counter
	// 单批次耗时
	BatchDuration prometheus.Histogram
	// 活跃会话数
	SessionsActive prometheus.Gauge
	// 被拒绝的配置数
	ConfigRejections prometheus.Counter
	// 被限流拒绝的请求数
	RateLimited *prometheus.CounterVec
}

// New 创建指标实例并注册到独立的 registry
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		GRPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Total gRPC requests",
		}, []string{"method", "code"}),
		PathsSimulated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paths_simulated_total",
			Help:      "Monte Carlo paths simulated, by engine phase at batch start",
		}, []string{"phase"}),
		BatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Simulation batches executed",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of one simulation batch",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Simulation sessions currently held in memory",
		}),
		ConfigRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_rejections_total",
			Help:      "Simulation configurations rejected as invalid",
		}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by deciding backend",
		}, []string{"backend"}),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GRPCRequestsTotal,
		m.PathsSimulated,
		m.BatchesTotal,
		m.BatchDuration,
		m.SessionsActive,
		m.ConfigRejections,
		m.RateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry 返回底层 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 暴露指标的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBatch 记录一次批次执行
func (m *Metrics) ObserveBatch(phase string, paths int, seconds float64) {
	if m == nil {
		return
	}
	m.PathsSimulated.WithLabelValues(phase).Add(float64(paths))
	m.BatchesTotal.Inc()
	m.BatchDuration.Observe(seconds)
}

// SetSessions 更新活跃会话数
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// RejectConfig 记录一次配置拒绝
func (m *Metrics) RejectConfig() {
	if m == nil {
		return
	}
	m.ConfigRejections.Inc()
}

// RejectRequest 记录一次限流拒绝
func (m *Metrics) RejectRequest(backend string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(backend).Inc()
}
