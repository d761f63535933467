package metrics

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

var breakerStates = []string{"closed", "open", "half_open"}

// GatewayMetrics observes resilience gateways. Breaker state is a Prometheus
// gauge per target and state, set to 1 for the current state and 0 otherwise.
type GatewayMetrics struct {
	otel      *Metrics
	state     *prometheus.GaugeVec
	attempts  *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
}

func NewGatewayMetrics(registerer prometheus.Registerer, cfg Config, otel *Metrics) *GatewayMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "accreditation"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "accreditation_circuit_breaker_state",
		Help:        "Circuit breaker state per downstream target (1 for the current state).",
		ConstLabels: constLabels,
	}, []string{"target", "state"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "accreditation_gateway_attempts_total",
		Help:        "Downstream attempts by target and outcome.",
		ConstLabels: constLabels,
	}, []string{"target", "outcome"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "accreditation_gateway_fallbacks_total",
		Help:        "Calls answered by the gateway fallback by target and cause.",
		ConstLabels: constLabels,
	}, []string{"target", "cause"})

	registerer.MustRegister(state, attempts, fallbacks)

	return &GatewayMetrics{
		otel:      otel,
		state:     state,
		attempts:  attempts,
		fallbacks: fallbacks,
	}
}

func (m *GatewayMetrics) ObserveAttempt(ctx context.Context, target, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(target, outcome).Inc()
	m.otel.RecordGatewayAttempt(ctx, target, outcome)
}

func (m *GatewayMetrics) ObserveRejected(ctx context.Context, target, cause string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(target, cause).Inc()
	m.otel.RecordGatewayFallback(ctx, target, cause)
}

func (m *GatewayMetrics) ObserveState(target, state string) {
	if m == nil {
		return
	}
	for _, s := range breakerStates {
		value := 0.0
		if s == state {
			value = 1
		}
		m.state.WithLabelValues(target, s).Set(value)
	}
}
