package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/heston/pkg/config"
)

func TestWithContext_InjectsTraceFields(t *testing.T) {
	var buf bytes.Buffer
	prev := globalLogger
	globalLogger = New(&buf, config.LoggerConfig{Level: "debug", Format: "json"})
	t.Cleanup(func() { globalLogger = prev })

	ctx := ContextWithTrace(context.Background(), "trace-1", "span-1")
	Info(ctx, "batch completed", "simulation_count", 1000)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "batch completed", entry["msg"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "span-1", entry["span_id"])
	assert.EqualValues(t, 1000, entry["simulation_count"])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, config.LoggerConfig{Level: "warn", Format: "text"})

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestTraceID_Missing(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}
