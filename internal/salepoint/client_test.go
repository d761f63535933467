package salepoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/accreditation/internal/apperr"
	"github.com/smallbiznis/accreditation/internal/downstream"
	"github.com/smallbiznis/accreditation/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() resilience.Policy {
	p := resilience.DefaultPolicy()
	p.Retry.InitialBackoff = time.Millisecond
	p.RateLimit = resilience.RateLimitPolicy{Limit: 1000, Period: time.Second}
	p.CallTimeout = time.Second
	return p
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	gw, err := resilience.New("salePoint", testPolicy(), resilience.ClassifyByKind,
		resilience.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	require.NoError(t, err)
	return NewClient(srv.URL+"/api/sale-points/", downstream.NewHTTPClient(time.Second), gw), &calls
}

func TestResolveName(t *testing.T) {
	var path string
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"id":100,"name":"Plaza Central"}`))
	})

	name, err := c.ResolveName(context.Background(), 100)

	require.NoError(t, err)
	assert.Equal(t, "Plaza Central", name)
	assert.Equal(t, "/api/sale-points/100", path)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveNameNotFoundIsNotRetried(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.ResolveName(context.Background(), 7)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveNameEmptyNameIsInternal(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":100,"name":"  "}`))
	})

	_, err := c.ResolveName(context.Background(), 100)

	assert.ErrorIs(t, err, apperr.ErrInternal)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveNameRetriesServerErrors(t *testing.T) {
	var n atomic.Int32
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"id":100,"name":"Plaza Central"}`))
	})

	name, err := c.ResolveName(context.Background(), 100)

	require.NoError(t, err)
	assert.Equal(t, "Plaza Central", name)
	assert.Equal(t, int32(3), calls.Load())
}

func TestResolveNameUnavailableAfterRetries(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.ResolveName(context.Background(), 100)

	assert.ErrorIs(t, err, apperr.ErrServiceUnavailable)
	assert.Equal(t, int32(testPolicy().Retry.MaxAttempts), calls.Load())
}
