// Package mq 提供 Kafka 生产者封装
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wyfcoding/heston/pkg/config"
	"github.com/wyfcoding/heston/pkg/logger"
)

// MessageWriter kafka.Writer 的最小接口，便于替换
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer Kafka 生产者
type Producer struct {
	writer MessageWriter
	topic  string
}

// NewProducer 创建 Kafka 生产者
func NewProducer(cfg config.KafkaConfig) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.MaxRetries,
		WriteBackoffMin:        time.Duration(cfg.RetryBackoff) * time.Millisecond,
		WriteBackoffMax:        time.Duration(cfg.RetryBackoff*10) * time.Millisecond,
	}
	logger.Info(context.Background(), "Kafka producer created", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return NewProducerWithWriter(writer, cfg.Topic)
}

// NewProducerWithWriter 使用自定义 writer 创建生产者
func NewProducerWithWriter(w MessageWriter, topic string) *Producer {
	return &Producer{writer: w, topic: topic}
}

// Send 将 value 序列化为 JSON 后发送，headers 追加为消息头
func (p *Producer) Send(ctx context.Context, key string, value any, headers map[string]string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error(ctx, "Failed to send Kafka message", "topic", p.topic, "key", key, "error", err)
		return err
	}
	logger.Debug(ctx, "Kafka message sent", "topic", p.topic, "key", key)
	return nil
}

// Topic 目标 topic
func (p *Producer) Topic() string {
	return p.topic
}

// Close 关闭生产者
func (p *Producer) Close() error {
	return p.writer.Close()
}
