package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/accreditation/internal/clock"
)

// Limiter hands out call permissions for one target. A refused call also
// learns how long until permissions refresh.
type Limiter interface {
	Allow(ctx context.Context) (ok bool, retryAfter time.Duration)
}

// localLimiter grants Limit permissions per cycle of Period. Cycles start at
// construction and every cycle boundary restores the full Limit; unused
// permissions do not carry over.
type localLimiter struct {
	limit  int
	period time.Duration
	clock  clock.Clock

	mu        sync.Mutex
	cycleEnd  time.Time
	remaining int
}

type unlimited struct{}

func (unlimited) Allow(context.Context) (bool, time.Duration) { return true, 0 }

func NewLocalLimiter(policy RateLimitPolicy, clk clock.Clock) Limiter {
	if policy.Limit <= 0 || policy.Period <= 0 {
		return unlimited{}
	}
	if clk == nil {
		clk = clock.New()
	}
	return &localLimiter{
		limit:     policy.Limit,
		period:    policy.Period,
		clock:     clk,
		cycleEnd:  clk.Now().Add(policy.Period),
		remaining: policy.Limit,
	}
}

func (l *localLimiter) Allow(_ context.Context) (bool, time.Duration) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if !now.Before(l.cycleEnd) {
		missed := now.Sub(l.cycleEnd) / l.period
		l.cycleEnd = l.cycleEnd.Add((missed + 1) * l.period)
		l.remaining = l.limit
	}
	if l.remaining > 0 {
		l.remaining--
		return true, 0
	}
	return false, l.cycleEnd.Sub(now)
}
