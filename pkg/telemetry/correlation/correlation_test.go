package correlation

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureCorrelationIDKeepsExisting(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "cid-1")

	ctx, cid := EnsureCorrelationID(ctx)

	assert.Equal(t, "cid-1", cid)
	assert.Equal(t, "cid-1", ExtractCorrelationID(ctx))
}

func TestEnsureCorrelationIDGenerates(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())

	assert.Len(t, cid, 26)
	assert.Equal(t, cid, ExtractCorrelationID(ctx))
}

func TestInjectHeaderAndMetadata(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "cid-2")
	h := http.Header{}

	InjectHeader(ctx, h)

	assert.Equal(t, "cid-2", h.Get(Header))
	assert.Equal(t, map[string]string{"correlation_id": "cid-2"}, Metadata(ctx))
}
