package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/accreditation/internal/resilience"
	"github.com/spf13/viper"
)

// Call targets guarded by a resilience gateway.
const (
	TargetSalePoint = "salePoint"
	TargetUser      = "user"
)

// ResilienceConfig is loaded once at startup and never reloaded; gateways
// keep the policy they were built with.
type ResilienceConfig struct {
	targets map[string]resilience.Policy
}

func DefaultResilienceConfig() map[string]resilience.Policy {
	salePoint := resilience.DefaultPolicy()
	salePoint.RateLimit = resilience.RateLimitPolicy{Limit: 50, Period: time.Second}

	user := resilience.DefaultPolicy()

	return map[string]resilience.Policy{
		TargetSalePoint: salePoint,
		TargetUser:      user,
	}
}

// NewResilienceConfig reads resilience.yml from the standard locations.
func NewResilienceConfig() (*ResilienceConfig, error) {
	return LoadResilienceConfig("/etc/accreditation", ".")
}

func LoadResilienceConfig(paths ...string) (*ResilienceConfig, error) {
	v := viper.New()

	v.SetConfigName("resilience")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("ACCREDITATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultResilienceConfig()
	for target, policy := range defaults {
		setPolicyDefaults(v, "resilience."+target, policy)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read resilience config: %w", err)
		}
	}

	// Unmarshal walks every leaf key, so file values merge over defaults.
	// Viper lowercases keys on the way.
	var raw struct {
		Resilience map[string]resilience.Policy `mapstructure:"resilience"`
	}
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("decode resilience config: %w", err)
	}

	cfg := &ResilienceConfig{targets: make(map[string]resilience.Policy, len(defaults))}
	for target := range defaults {
		policy, ok := raw.Resilience[strings.ToLower(target)]
		if !ok {
			return nil, fmt.Errorf("resilience.%s missing", target)
		}
		if err := policy.Validate(); err != nil {
			return nil, fmt.Errorf("resilience.%s: %w", target, err)
		}
		cfg.targets[target] = policy
	}
	return cfg, nil
}

// Policy returns the validated policy of target.
func (c *ResilienceConfig) Policy(target string) (resilience.Policy, error) {
	if c == nil {
		return resilience.Policy{}, errors.New("resilience config not loaded")
	}
	policy, ok := c.targets[target]
	if !ok {
		return resilience.Policy{}, fmt.Errorf("no resilience policy for target %q", target)
	}
	return policy, nil
}

func setPolicyDefaults(v *viper.Viper, prefix string, p resilience.Policy) {
	v.SetDefault(prefix+".rateLimit.limitForPeriod", p.RateLimit.Limit)
	v.SetDefault(prefix+".rateLimit.limitRefreshPeriod", p.RateLimit.Period)
	v.SetDefault(prefix+".circuitBreaker.slidingWindowSize", p.Breaker.WindowSize)
	v.SetDefault(prefix+".circuitBreaker.minimumNumberOfCalls", p.Breaker.MinimumCalls)
	v.SetDefault(prefix+".circuitBreaker.failureRateThreshold", p.Breaker.FailureRateThreshold)
	v.SetDefault(prefix+".circuitBreaker.waitDurationInOpenState", p.Breaker.OpenCooldown)
	v.SetDefault(prefix+".retry.maxAttempts", p.Retry.MaxAttempts)
	v.SetDefault(prefix+".retry.waitDuration", p.Retry.InitialBackoff)
	v.SetDefault(prefix+".retry.exponentialBackoffMultiplier", p.Retry.BackoffMultiplier)
	v.SetDefault(prefix+".callTimeout", p.CallTimeout)
}
