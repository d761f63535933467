package correlation

import (
	"context"
	"net/http"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
)

// Header carries the correlation id between services.
const Header = "X-Correlation-ID"

type correlationKey struct{}

// ExtractCorrelationID fetches a correlation ID from the context if present.
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(correlationKey{}).(string); ok {
		return val
	}
	return ""
}

// ContextWithCorrelationID sets the correlation ID onto the context.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// EnsureCorrelationID guarantees a correlation ID on the context, generating one when missing.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	cid := ExtractCorrelationID(ctx)
	if cid == "" {
		cid = ulid.Make().String()
	}
	return ContextWithCorrelationID(ctx, cid), cid
}

// InjectHeader copies the correlation ID from ctx onto an outbound request.
func InjectHeader(ctx context.Context, h http.Header) {
	if cid := ExtractCorrelationID(ctx); cid != "" {
		h.Set(Header, cid)
	}
}

// Metadata returns the correlation and tracing identifiers carried by ctx,
// suitable for stamping onto outbound messages.
func Metadata(ctx context.Context) map[string]string {
	md := map[string]string{}
	if cid := ExtractCorrelationID(ctx); cid != "" {
		md["correlation_id"] = cid
	}
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		md["trace_id"] = sc.TraceID().String()
		md["span_id"] = sc.SpanID().String()
	}
	return md
}
