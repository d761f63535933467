package clock

import (
	"context"
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall time so breaker cooldowns and record timestamps can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var Module = fx.Module("clock",
	fx.Provide(New),
)
