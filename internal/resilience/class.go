package resilience

import (
	"errors"

	"github.com/smallbiznis/accreditation/internal/apperr"
)

// Class tells the gateway whether a failed attempt may be retried.
type Class int

const (
	// ClassTransient failures are retried and count against the breaker.
	ClassTransient Class = iota
	// ClassTerminal failures reflect the target's true state: no retry, no
	// breaker bookkeeping, propagated unchanged.
	ClassTerminal
)

func (c Class) String() string {
	if c == ClassTerminal {
		return "terminal"
	}
	return "transient"
}

// Classifier maps an operation error to a Class. Each client supplies one.
type Classifier func(err error) Class

// Cause names why a fallback was produced.
type Cause string

const (
	CauseRateLimited      Cause = "rate_limited"
	CauseCircuitOpen      Cause = "circuit_open"
	CauseRetriesExhausted Cause = "retries_exhausted"
	CauseCallerCancelled  Cause = "caller_cancelled"
)

// ErrCircuitOpen is wrapped into the fallback error when the breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker open")

// ClassifyByKind treats typed client-side outcomes (not found, 4xx, malformed
// bodies) as terminal and everything else as transient.
func ClassifyByKind(err error) Class {
	switch {
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrUpstreamClientError),
		errors.Is(err, apperr.ErrInternal),
		errors.Is(err, apperr.ErrInvalidRequest):
		return ClassTerminal
	default:
		return ClassTransient
	}
}
