package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ReservationOutcome("confirmed")
	m.ReservationOutcome("confirmed")
	m.ReservationOutcome("CAPACITY_EXHAUSTED")
	m.CacheLookup("hit")
	m.TxRetried(1, nil)
	m.SetLedgerDrift(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reservations.WithLabelValues("confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reservations.WithLabelValues("CAPACITY_EXHAUSTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TxRetries))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LedgerDrift))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ReservationOutcome("confirmed")
		m.CacheInvalidated()
		m.ObserveHTTP("GET", "/api/events", "200", 0.01)
	})
}
