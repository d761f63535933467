package apperr

import (
	"errors"
	"net/http"
	"time"
)

// Kind classifies an error for callers and for the HTTP layer.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindPermissionDenied    Kind = "permission_denied"
	KindRateLimited         Kind = "too_many_requests"
	KindServiceUnavailable  Kind = "service_unavailable"
	KindUpstreamClientError Kind = "upstream_client_error"
	KindInternal            Kind = "internal_error"
	KindInvalidRequest      Kind = "invalid_request"
	KindUnauthenticated     Kind = "unauthenticated"
)

// Sentinels usable with errors.Is.
var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrPermissionDenied    = &Error{Kind: KindPermissionDenied}
	ErrRateLimited         = &Error{Kind: KindRateLimited}
	ErrServiceUnavailable  = &Error{Kind: KindServiceUnavailable}
	ErrUpstreamClientError = &Error{Kind: KindUpstreamClientError}
	ErrInternal            = &Error{Kind: KindInternal}
	ErrInvalidRequest      = &Error{Kind: KindInvalidRequest}
	ErrUnauthenticated     = &Error{Kind: KindUnauthenticated}
)

// Error is the typed error value shared by every layer of the service.
type Error struct {
	Kind    Kind
	Status  int // upstream status when Kind is KindUpstreamClientError
	Message string
	Err     error

	// RetryAfter is set on rate limited errors: the wait until the caller's
	// next permission.
	RetryAfter time.Duration
}

func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Upstream builds an UpstreamClientError carrying the downstream status.
func Upstream(status int, message string, cause error) *Error {
	return &Error{Kind: KindUpstreamClientError, Status: status, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels compare by kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind of the outermost *Error in the chain, or
// KindInternal when err carries none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return KindInternal
}

// RetryAfter returns the first positive RetryAfter in the chain.
func RetryAfter(err error) time.Duration {
	for err != nil {
		if e, ok := err.(*Error); ok && e != nil && e.RetryAfter > 0 {
			return e.RetryAfter
		}
		err = errors.Unwrap(err)
	}
	return 0
}

// HTTPStatus suggests the status code for a kind.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindUpstreamClientError:
		return http.StatusBadGateway
	case KindInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
