package resilience

import (
	"testing"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

func TestRetryBackoffGrowsExponentially(t *testing.T) {
	r := DefaultPolicy().Retry
	r.MaxAttempts = 4
	b := r.NewBackOff()

	assert.Equal(t, 500*time.Millisecond, b.NextBackOff())
	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, backoff.Stop, b.NextBackOff())

	b.Reset()
	assert.Equal(t, 500*time.Millisecond, b.NextBackOff())
}

func TestRetryBackoffSingleAttemptNeverWaits(t *testing.T) {
	r := RetryPolicy{MaxAttempts: 1, InitialBackoff: time.Second, BackoffMultiplier: 2}

	assert.Equal(t, backoff.Stop, r.NewBackOff().NextBackOff())
}

func TestDefaultPolicyIsValid(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
}

func TestPolicyValidate(t *testing.T) {
	cases := map[string]func(p *Policy){
		"negative limit":        func(p *Policy) { p.RateLimit.Limit = -1 },
		"limit without period":  func(p *Policy) { p.RateLimit = RateLimitPolicy{Limit: 5} },
		"empty window":          func(p *Policy) { p.Breaker.WindowSize = 0 },
		"minimum above window":  func(p *Policy) { p.Breaker.MinimumCalls = 11 },
		"threshold above 100":   func(p *Policy) { p.Breaker.FailureRateThreshold = 101 },
		"zero cooldown":         func(p *Policy) { p.Breaker.OpenCooldown = 0 },
		"zero attempts":         func(p *Policy) { p.Retry.MaxAttempts = 0 },
		"shrinking backoff":     func(p *Policy) { p.Retry.BackoffMultiplier = 0.5 },
		"negative call timeout": func(p *Policy) { p.CallTimeout = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := DefaultPolicy()
			mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestClassifyByKind(t *testing.T) {
	assert.Equal(t, ClassTerminal, ClassifyByKind(errNotFound()))
	assert.Equal(t, ClassTransient, ClassifyByKind(unavailable()))
	assert.Equal(t, ClassTransient, ClassifyByKind(assert.AnError))
}
