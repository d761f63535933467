package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadResilienceConfigDefaults(t *testing.T) {
	cfg, err := LoadResilienceConfig(t.TempDir())
	require.NoError(t, err)

	sp, err := cfg.Policy(TargetSalePoint)
	require.NoError(t, err)
	assert.Equal(t, 50, sp.RateLimit.Limit)
	assert.Equal(t, time.Second, sp.RateLimit.Period)
	assert.Equal(t, 3, sp.Retry.MaxAttempts)

	user, err := cfg.Policy(TargetUser)
	require.NoError(t, err)
	assert.Zero(t, user.RateLimit.Limit)
	assert.Equal(t, 10*time.Second, user.Breaker.OpenCooldown)

	_, err = cfg.Policy("billing")
	assert.Error(t, err)
}

func TestLoadResilienceConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	body := `
resilience:
  salePoint:
    rateLimit:
      limitForPeriod: 5
      limitRefreshPeriod: 2s
    circuitBreaker:
      slidingWindowSize: 20
      minimumNumberOfCalls: 10
      failureRateThreshold: 60
      waitDurationInOpenState: 30s
    retry:
      maxAttempts: 4
      waitDuration: 250ms
      exponentialBackoffMultiplier: 1.5
    callTimeout: 1s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resilience.yml"), []byte(body), 0o600))

	cfg, err := LoadResilienceConfig(dir)
	require.NoError(t, err)

	sp, err := cfg.Policy(TargetSalePoint)
	require.NoError(t, err)
	assert.Equal(t, 5, sp.RateLimit.Limit)
	assert.Equal(t, 2*time.Second, sp.RateLimit.Period)
	assert.Equal(t, 20, sp.Breaker.WindowSize)
	assert.Equal(t, 10, sp.Breaker.MinimumCalls)
	assert.Equal(t, float64(60), sp.Breaker.FailureRateThreshold)
	assert.Equal(t, 30*time.Second, sp.Breaker.OpenCooldown)
	assert.Equal(t, 4, sp.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, sp.Retry.InitialBackoff)
	assert.Equal(t, 1.5, sp.Retry.BackoffMultiplier)
	assert.Equal(t, time.Second, sp.CallTimeout)

	user, err := cfg.Policy(TargetUser)
	require.NoError(t, err)
	assert.Equal(t, 3, user.Retry.MaxAttempts)
}

func TestLoadResilienceConfigRejectsInvalidPolicy(t *testing.T) {
	dir := t.TempDir()
	body := `
resilience:
  user:
    circuitBreaker:
      failureRateThreshold: 150
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resilience.yml"), []byte(body), 0o600))

	_, err := LoadResilienceConfig(dir)
	assert.ErrorContains(t, err, "resilience.user")
}
