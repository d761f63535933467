package ctxlogger

import (
	"context"
	"sync/atomic"

	"github.com/smallbiznis/accreditation/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type requestIDKey struct{}
type callerIDKey struct{}

var serviceName atomic.Pointer[string]

// SetServiceName configures the service name added to every log entry.
func SetServiceName(name string) {
	serviceName.Store(&name)
}

// ContextWithRequestID annotates the context with the inbound request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ContextWithCallerID annotates the context with the authenticated caller.
func ContextWithCallerID(ctx context.Context, id int64) context.Context {
	if id == 0 {
		return ctx
	}
	return context.WithValue(ctx, callerIDKey{}, id)
}

// FromContext returns a logger enriched with tracing and correlation metadata from context.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext enriches the provided logger using metadata in the context.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil {
		return base
	}

	fields := make([]zap.Field, 0, 7)
	fields = append(fields, ExtractCorrelation(ctx))
	fields = append(fields, ExtractTrace(ctx)...)

	name := "unknown"
	if namePtr := serviceName.Load(); namePtr != nil {
		name = *namePtr
	}
	fields = append(fields, zap.String("service", name))

	if id := RequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if caller, ok := ctx.Value(callerIDKey{}).(int64); ok {
		fields = append(fields, zap.Int64("caller_id", caller))
	}

	return base.With(fields...)
}

// ExtractCorrelation pulls the correlation ID from the context.
func ExtractCorrelation(ctx context.Context) zap.Field {
	return zap.String("correlation_id", correlation.ExtractCorrelationID(ctx))
}

// ExtractTrace pulls tracing identifiers from the context span.
func ExtractTrace(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return []zap.Field{zap.String("trace_id", ""), zap.String("span_id", "")}
	}

	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
