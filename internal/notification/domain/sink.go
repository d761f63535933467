package domain

import (
	"context"
	"errors"
)

// ErrBrokerTransient marks send failures worth retrying: broker unreachable,
// connection reset, channel closed, write timeout.
var ErrBrokerTransient = errors.New("broker transient failure")

// Sink delivers one envelope to a broker. Implementations wrap
// ErrBrokerTransient for retryable failures.
type Sink interface {
	Name() string
	Send(ctx context.Context, exchange, routingKey string, env Envelope) error
}

// Publisher sends notification events. Delivery failures are logged and
// counted inside Publish and only reported back through Result.
type Publisher interface {
	Publish(ctx context.Context, event Event, recordID int64) Result
}

// Result describes one Publish call. Callers past their commit point may
// discard it.
type Result struct {
	EventID   string
	Delivered bool
	Attempts  int
	Err       error
}
