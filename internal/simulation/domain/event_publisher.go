package domain

import "context"

// EventPublisher 领域事件发布者接口
type EventPublisher interface {
	// Publish 以 key 为分区键发布事件
	Publish(ctx context.Context, eventType string, key string, event any) error
}
