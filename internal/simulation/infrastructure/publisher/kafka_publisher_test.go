package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/heston/internal/simulation/domain"
	"github.com/wyfcoding/heston/pkg/logger"
	"github.com/wyfcoding/heston/pkg/mq"
)

type memoryWriter struct {
	messages []kafka.Message
	err      error
}

func (w *memoryWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *memoryWriter) Close() error { return nil }

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaEventPublisher_Publish(t *testing.T) {
	w := &memoryWriter{}
	pub := NewKafkaEventPublisher(mq.NewProducerWithWriter(w, "heston.simulation.events"), "heston", BreakerSettings{})

	ctx := logger.ContextWithTrace(context.Background(), "trace-1", "span-1")
	event := domain.SimulationBatchCompletedEvent{
		SimulationID:    "sim-1",
		BatchSize:       100,
		SimulationCount: 100,
		OptionPrice:     10.5,
		Phase:           domain.PhaseTracking,
		OccurredOn:      time.Unix(0, 0).UTC(),
	}
	require.NoError(t, pub.Publish(ctx, domain.SimulationBatchCompletedEventType, "sim-1", event))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "heston.simulation.events", msg.Topic)
	assert.Equal(t, "sim-1", string(msg.Key))
	assert.Equal(t, domain.SimulationBatchCompletedEventType, header(msg, HeaderEventType))
	assert.Equal(t, "heston", header(msg, HeaderSource))
	assert.Equal(t, "trace-1", header(msg, "trace_id"))

	var decoded domain.SimulationBatchCompletedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event, decoded)
}

func TestKafkaEventPublisher_WriteError(t *testing.T) {
	boom := errors.New("broker unavailable")
	pub := NewKafkaEventPublisher(mq.NewProducerWithWriter(&memoryWriter{err: boom}, "t"), "heston", BreakerSettings{})

	err := pub.Publish(context.Background(), domain.SimulationDeletedEventType, "sim-1", domain.SimulationDeletedEvent{})
	assert.ErrorIs(t, err, boom)
}

func TestLogEventPublisher(t *testing.T) {
	assert.NoError(t, NewLogEventPublisher().Publish(context.Background(), "x", "k", map[string]int{"a": 1}))
}

type countingSender struct {
	calls int
	err   error
}

func (s *countingSender) Send(context.Context, string, any, map[string]string) error {
	s.calls++
	return s.err
}

func TestKafkaEventPublisher_BreakerOpens(t *testing.T) {
	sender := &countingSender{err: errors.New("broker unavailable")}
	pub := NewKafkaEventPublisher(sender, "heston", BreakerSettings{Failures: 3, Timeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, pub.Publish(ctx, "x", "k", nil), sender.err)
	}
	err := pub.Publish(ctx, "x", "k", nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, sender.calls)
}
