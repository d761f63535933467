package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("target", "salePoint"),
		attribute.String("user_email", "u@example.com"),
		attribute.String("reason", "circuit_open"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "target" && attrs[1].Key != "target" {
		t.Fatalf("expected target to be retained")
	}
	if attrs[0].Key != "reason" && attrs[1].Key != "reason" {
		t.Fatalf("expected reason to be retained")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	m.RecordGatewayAttempt(ctx, "user", "success")
	m.RecordGatewayFallback(ctx, "user", "rate_limited")
	m.RecordAccreditationCreated(ctx)
	m.RecordNotificationSent(ctx, "log", 1)
	m.RecordNotificationLost(ctx, "log", "retries_exhausted")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "accreditation"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.RecordGatewayAttempt(context.Background(), "salePoint", "transient")
}
