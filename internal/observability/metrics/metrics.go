package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	gatewayAttempts      metric.Int64Counter
	gatewayRejections    metric.Int64Counter
	accreditationCreated metric.Int64Counter
	notificationSent     metric.Int64Counter
	notificationLost     metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "accreditation"
	}
	meter := provider.Meter(name)

	gatewayAttempts, err := meter.Int64Counter("accreditation_gateway_attempts_total")
	if err != nil {
		return nil, err
	}
	gatewayRejections, err := meter.Int64Counter("accreditation_gateway_fallbacks_total")
	if err != nil {
		return nil, err
	}
	accreditationCreated, err := meter.Int64Counter("accreditation_created_total")
	if err != nil {
		return nil, err
	}
	notificationSent, err := meter.Int64Counter("accreditation_notification_sent_total")
	if err != nil {
		return nil, err
	}
	notificationLost, err := meter.Int64Counter("accreditation_notification_lost_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatewayAttempts:      gatewayAttempts,
		gatewayRejections:    gatewayRejections,
		accreditationCreated: accreditationCreated,
		notificationSent:     notificationSent,
		notificationLost:     notificationLost,
	}, nil
}

// RecordGatewayAttempt counts one attempt that reached a downstream target.
func (m *Metrics) RecordGatewayAttempt(ctx context.Context, target, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("target", strings.TrimSpace(target)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.gatewayAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordGatewayFallback counts calls answered by the gateway fallback.
func (m *Metrics) RecordGatewayFallback(ctx context.Context, target, cause string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("target", strings.TrimSpace(target)),
		attribute.String("reason", strings.TrimSpace(cause)),
	)
	m.gatewayRejections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordAccreditationCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.accreditationCreated.Add(ctx, 1)
}

func (m *Metrics) RecordNotificationSent(ctx context.Context, sink string, attempts int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("sink", strings.TrimSpace(sink)),
		attribute.Int("attempts", attempts),
	)
	m.notificationSent.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNotificationLost counts notifications dropped after the publisher gave up.
func (m *Metrics) RecordNotificationLost(ctx context.Context, sink, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("sink", strings.TrimSpace(sink)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.notificationLost.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"target":      {},
	"outcome":     {},
	"reason":      {},
	"sink":        {},
	"attempts":    {},
	"endpoint":    {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
