package downstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/accreditation/internal/apperr"
	"github.com/smallbiznis/accreditation/pkg/log"
	"github.com/smallbiznis/accreditation/pkg/telemetry/correlation"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxErrorBody = 512

type bearerTokenKey struct{}

// ContextWithBearerToken stores the caller's raw token so outbound calls can
// forward it.
func ContextWithBearerToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, bearerTokenKey{}, token)
}

func BearerToken(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(bearerTokenKey{}).(string)
	return token
}

// NewHTTPClient returns a traced client. Per-attempt deadlines come from the
// gateway, so timeout only caps a call made without one.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// StatusError is an unexpected downstream status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// GetJSON performs a GET against url forwarding the bearer token and
// correlation id from ctx, and decodes a 2xx body into out.
//
// 404 maps to NotFound, other 4xx to UpstreamClientError, an undecodable
// body to Internal. 5xx and transport errors are returned untyped.
func GetJSON(ctx context.Context, client *http.Client, url, resource string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperr.New(apperr.KindInternal, "build "+resource+" request", err)
	}
	req.Header.Set("Accept", "application/json")
	if token := BearerToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	correlation.InjectHeader(ctx, req.Header)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Named(ctx, "downstream").Debug("downstream returned error status",
			zap.String("resource", resource),
			zap.Int("status_code", resp.StatusCode),
		)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperr.New(apperr.KindNotFound, resource+" not found", nil)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return apperr.Upstream(resp.StatusCode, resource+" service rejected the request", statusError(resp))
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s service: %w", resource, statusError(resp))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return apperr.Upstream(resp.StatusCode, resource+" service returned an unexpected status", statusError(resp))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", resource, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return apperr.New(apperr.KindInternal, resource+" service returned an empty body", nil)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.New(apperr.KindInternal, resource+" service returned a malformed body", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// IsStatus reports whether err carries a downstream status error with code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == code
}
