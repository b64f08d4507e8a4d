package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveBatch(t *testing.T) {
	m := New("heston_test")

	m.ObserveBatch("TRACKING", 1000, 0.02)
	m.ObserveBatch("ACCUMULATING", 500, 0.01)

	assert.Equal(t, 1000.0, testutil.ToFloat64(m.PathsSimulated.WithLabelValues("TRACKING")))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.PathsSimulated.WithLabelValues("ACCUMULATING")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BatchesTotal))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBatch("TRACKING", 1, 0)
		m.SetSessions(3)
		m.RejectConfig()
	})
}

func TestSetSessions(t *testing.T) {
	m := New("heston_test")
	m.SetSessions(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsActive))
}
