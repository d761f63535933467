package resilience

import (
	"errors"
	"fmt"
	"math"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// Policy is the immutable resilience configuration of one call target.
type Policy struct {
	RateLimit   RateLimitPolicy `mapstructure:"rateLimit"`
	Breaker     BreakerPolicy   `mapstructure:"circuitBreaker"`
	Retry       RetryPolicy     `mapstructure:"retry"`
	CallTimeout time.Duration   `mapstructure:"callTimeout"`
}

// RateLimitPolicy allows Limit calls per Period. A zero Limit disables limiting.
type RateLimitPolicy struct {
	Limit  int           `mapstructure:"limitForPeriod"`
	Period time.Duration `mapstructure:"limitRefreshPeriod"`
}

// BreakerPolicy configures the count-based sliding window breaker.
// FailureRateThreshold is a percentage in (0, 100].
type BreakerPolicy struct {
	WindowSize           int           `mapstructure:"slidingWindowSize"`
	MinimumCalls         int           `mapstructure:"minimumNumberOfCalls"`
	FailureRateThreshold float64       `mapstructure:"failureRateThreshold"`
	OpenCooldown         time.Duration `mapstructure:"waitDurationInOpenState"`
}

type RetryPolicy struct {
	MaxAttempts       int           `mapstructure:"maxAttempts"`
	InitialBackoff    time.Duration `mapstructure:"waitDuration"`
	BackoffMultiplier float64       `mapstructure:"exponentialBackoffMultiplier"`
}

func DefaultPolicy() Policy {
	return Policy{
		RateLimit: RateLimitPolicy{
			Limit:  0,
			Period: time.Second,
		},
		Breaker: BreakerPolicy{
			WindowSize:           10,
			MinimumCalls:         5,
			FailureRateThreshold: 50,
			OpenCooldown:         10 * time.Second,
		},
		Retry: RetryPolicy{
			MaxAttempts:       3,
			InitialBackoff:    500 * time.Millisecond,
			BackoffMultiplier: 2,
		},
		CallTimeout: 3 * time.Second,
	}
}

// NewBackOff returns the retry schedule: InitialBackoff grown by
// BackoffMultiplier after every failed attempt, without jitter, stopping
// once MaxAttempts-1 delays have been handed out.
func (r RetryPolicy) NewBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.InitialBackoff
	exp.Multiplier = math.Max(r.BackoffMultiplier, 1)
	exp.RandomizationFactor = 0
	exp.MaxInterval = time.Duration(math.MaxInt64)
	exp.MaxElapsedTime = 0
	exp.Reset()

	var retries uint64
	if r.MaxAttempts > 1 {
		retries = uint64(r.MaxAttempts - 1)
	}
	return backoff.WithMaxRetries(exp, retries)
}

func (p Policy) Validate() error {
	if p.RateLimit.Limit < 0 {
		return errors.New("rateLimit.limitForPeriod cannot be negative")
	}
	if p.RateLimit.Limit > 0 && p.RateLimit.Period <= 0 {
		return errors.New("rateLimit.limitRefreshPeriod must be positive")
	}
	if p.Breaker.WindowSize <= 0 {
		return errors.New("circuitBreaker.slidingWindowSize must be positive")
	}
	if p.Breaker.MinimumCalls <= 0 || p.Breaker.MinimumCalls > p.Breaker.WindowSize {
		return fmt.Errorf("circuitBreaker.minimumNumberOfCalls must be within [1, %d]", p.Breaker.WindowSize)
	}
	if p.Breaker.FailureRateThreshold <= 0 || p.Breaker.FailureRateThreshold > 100 {
		return errors.New("circuitBreaker.failureRateThreshold must be within (0, 100]")
	}
	if p.Breaker.OpenCooldown <= 0 {
		return errors.New("circuitBreaker.waitDurationInOpenState must be positive")
	}
	if p.Retry.MaxAttempts <= 0 {
		return errors.New("retry.maxAttempts must be positive")
	}
	if p.Retry.InitialBackoff < 0 {
		return errors.New("retry.waitDuration cannot be negative")
	}
	if p.Retry.BackoffMultiplier < 1 {
		return errors.New("retry.exponentialBackoffMultiplier must be >= 1")
	}
	if p.CallTimeout < 0 {
		return errors.New("callTimeout cannot be negative")
	}
	return nil
}
