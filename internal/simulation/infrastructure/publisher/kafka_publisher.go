// Package publisher 提供模拟领域事件的发布实现
package publisher

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wyfcoding/heston/internal/simulation/domain"
	"github.com/wyfcoding/heston/pkg/logger"
	"github.com/wyfcoding/heston/pkg/mq"
)

// 事件类型写入的消息头
const (
	HeaderEventType = "event_type"
	HeaderSource    = "source"
)

// Sender 消息发送接口，由 mq.Producer 实现
type Sender interface {
	Send(ctx context.Context, key string, value any, headers map[string]string) error
}

// KafkaEventPublisher 将领域事件写入 Kafka，以 simulation ID 作为消息 key 保证同一会话有序
// 连续失败达到阈值后熔断，熔断期间直接返回 gobreaker.ErrOpenState。
type KafkaEventPublisher struct {
	sender  Sender
	source  string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
}

var _ Sender = (*mq.Producer)(nil)

// BreakerSettings 熔断参数，Failures 为 0 时不熔断
type BreakerSettings struct {
	Failures uint32
	Timeout  time.Duration
}

// NewKafkaEventPublisher 创建 Kafka 事件发布器
func NewKafkaEventPublisher(sender Sender, source string, bs BreakerSettings) domain.EventPublisher {
	p := &KafkaEventPublisher{sender: sender, source: source, timeout: 5 * time.Second}
	if bs.Failures > 0 {
		p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "kafka-publisher",
			Timeout: bs.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= bs.Failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn(context.Background(), "circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return p
}

// Publish 发布事件
func (p *KafkaEventPublisher) Publish(ctx context.Context, eventType, key string, event any) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	headers := map[string]string{
		HeaderEventType: eventType,
		HeaderSource:    p.source,
	}
	if traceID := logger.TraceID(ctx); traceID != "" {
		headers["trace_id"] = traceID
	}

	if p.breaker == nil {
		return p.sender.Send(ctx, key, event, headers)
	}
	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.sender.Send(ctx, key, event, headers)
	})
	return err
}

// LogEventPublisher 未启用 Kafka 时把事件写入日志
type LogEventPublisher struct{}

// NewLogEventPublisher 创建日志事件发布器
func NewLogEventPublisher() domain.EventPublisher {
	return LogEventPublisher{}
}

// Publish 以 debug 级别记录事件
func (LogEventPublisher) Publish(ctx context.Context, eventType, key string, event any) error {
	logger.Debug(ctx, "simulation event", "event_type", eventType, "key", key, "event", event)
	return nil
}
