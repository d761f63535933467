package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGatewayMetricsTracksBreakerState(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGatewayMetrics(reg, Config{ServiceName: "accreditation", Environment: "test"}, nil)

	m.ObserveState("salePoint", "closed")
	m.ObserveState("salePoint", "open")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("salePoint", "open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("salePoint", "closed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("salePoint", "half_open")))
}

func TestGatewayMetricsCountsAttemptsAndFallbacks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGatewayMetrics(reg, Config{}, nil)
	ctx := context.Background()

	m.ObserveAttempt(ctx, "user", "transient")
	m.ObserveAttempt(ctx, "user", "transient")
	m.ObserveAttempt(ctx, "user", "success")
	m.ObserveRejected(ctx, "user", "circuit_open")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("user", "transient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("user", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("user", "circuit_open")))
}
