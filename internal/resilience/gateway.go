package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/smallbiznis/accreditation/internal/apperr"
	"github.com/smallbiznis/accreditation/internal/clock"
	"github.com/smallbiznis/accreditation/pkg/log/ctxlogger"
	"go.uber.org/zap"
)

// Observer receives gateway events for metrics. Implementations must be
// safe for concurrent use.
type Observer interface {
	ObserveAttempt(ctx context.Context, target, outcome string)
	ObserveRejected(ctx context.Context, target, cause string)
	ObserveState(target, state string)
}

// Operation is one remote call guarded by a Gateway.
type Operation[T any] func(ctx context.Context) (T, error)

// Gateway guards every call to one downstream dependency. It owns the
// target's breaker and limiter; build one per target and share it.
type Gateway struct {
	target   string
	policy   Policy
	classify Classifier
	limiter  Limiter
	breaker  *Breaker
	clock    clock.Clock
	sleep    func(ctx context.Context, d time.Duration) error
	observer Observer
	log      *zap.Logger
}

type Option func(*Gateway)

func WithLimiter(l Limiter) Option {
	return func(g *Gateway) {
		if l != nil {
			g.limiter = l
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(g *Gateway) {
		if c != nil {
			g.clock = c
		}
	}
}

// WithSleep replaces the backoff sleeper.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Gateway) {
		if fn != nil {
			g.sleep = fn
		}
	}
}

func WithObserver(o Observer) Option {
	return func(g *Gateway) {
		g.observer = o
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(g *Gateway) {
		if log != nil {
			g.log = log
		}
	}
}

func New(target string, policy Policy, classify Classifier, opts ...Option) (*Gateway, error) {
	if target == "" {
		return nil, errors.New("resilience: target name is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("resilience: invalid policy for %s: %w", target, err)
	}
	if classify == nil {
		classify = ClassifyByKind
	}

	g := &Gateway{
		target:   target,
		policy:   policy,
		classify: classify,
		clock:    clock.New(),
		sleep:    clock.Sleep,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.Named("resilience").With(zap.String("target", target))
	if g.limiter == nil {
		g.limiter = NewLocalLimiter(policy.RateLimit, g.clock)
	}
	g.breaker = NewBreaker(policy.Breaker, g.clock, g.onTransition)
	if g.observer != nil {
		g.observer.ObserveState(target, StateClosed.String())
	}
	return g, nil
}

func (g *Gateway) Target() string { return g.target }

func (g *Gateway) State() State { return g.breaker.State() }

// Invoke runs op under the gateway's rate limiter, circuit breaker and retry
// policy, and classifies every failure into a typed error.
func Invoke[T any](ctx context.Context, g *Gateway, op Operation[T]) (T, error) {
	var zero T
	log := ctxlogger.WithContext(ctx, g.log)

	if ok, wait := g.limiter.Allow(ctx); !ok {
		log.Warn("rate limit exceeded, call not attempted", zap.Duration("retry_after", wait))
		return zero, g.rateLimited(ctx, wait)
	}

	delays := g.policy.Retry.NewBackOff()
	var lastErr error
	for attempt := 1; attempt <= g.policy.Retry.MaxAttempts; attempt++ {
		p, ok := g.breaker.acquire()
		if !ok {
			log.Warn("circuit open, call short-circuited", zap.Int("attempt", attempt))
			cause := error(ErrCircuitOpen)
			if lastErr != nil {
				cause = fmt.Errorf("%w: %w", ErrCircuitOpen, lastErr)
			}
			return zero, g.fallback(ctx, CauseCircuitOpen, cause)
		}

		result, err := runAttempt(ctx, g.policy.CallTimeout, op)
		if err == nil {
			g.breaker.record(p, outcomeSuccess)
			g.observeAttempt(ctx, "success")
			if attempt > 1 {
				log.Info("call succeeded after retry", zap.Int("attempt", attempt))
			}
			return result, nil
		}

		if g.classify(err) == ClassTerminal {
			g.breaker.record(p, outcomeIgnored)
			g.observeAttempt(ctx, "terminal")
			log.Debug("terminal failure, not retried", zap.Int("attempt", attempt), zap.Error(err))
			return zero, err
		}

		g.breaker.record(p, outcomeFailure)
		g.observeAttempt(ctx, "transient")
		lastErr = err
		log.Warn("transient failure",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", g.policy.Retry.MaxAttempts),
			zap.Error(err),
		)

		delay := delays.NextBackOff()
		if attempt == g.policy.Retry.MaxAttempts || delay == backoff.Stop {
			break
		}
		if sleepErr := g.sleep(ctx, delay); sleepErr != nil {
			return zero, g.fallback(ctx, CauseCallerCancelled, fmt.Errorf("%w: %w", sleepErr, lastErr))
		}
	}

	return zero, g.fallback(ctx, CauseRetriesExhausted, lastErr)
}

// runAttempt detaches the call from caller cancellation so an in-flight
// attempt always completes and is recorded; only CallTimeout bounds it.
func runAttempt[T any](ctx context.Context, timeout time.Duration, op Operation[T]) (T, error) {
	attemptCtx := context.WithoutCancel(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(attemptCtx, timeout)
		defer cancel()
	}
	return op(attemptCtx)
}

func (g *Gateway) rateLimited(ctx context.Context, wait time.Duration) error {
	if g.observer != nil {
		g.observer.ObserveRejected(ctx, g.target, string(CauseRateLimited))
	}
	err := apperr.New(apperr.KindRateLimited, fmt.Sprintf("rate limit exceeded calling %s, try again later", g.target), nil)
	err.RetryAfter = wait
	return err
}

func (g *Gateway) fallback(ctx context.Context, cause Cause, err error) error {
	if g.observer != nil {
		g.observer.ObserveRejected(ctx, g.target, string(cause))
	}

	if errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return apperr.New(apperr.KindServiceUnavailable, fmt.Sprintf("%s temporarily unavailable", g.target), err)
}

func (g *Gateway) observeAttempt(ctx context.Context, outcome string) {
	if g.observer != nil {
		g.observer.ObserveAttempt(ctx, g.target, outcome)
	}
}

func (g *Gateway) onTransition(from, to State) {
	g.log.Warn("circuit breaker state changed",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
	if g.observer != nil {
		g.observer.ObserveState(g.target, to.String())
	}
}
