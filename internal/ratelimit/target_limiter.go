package ratelimit

import (
	"context"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/accreditation/internal/config"
	"github.com/smallbiznis/accreditation/internal/resilience"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiters hands out resilience limiters backed by a window shared across
// replicas. A nil *Limiters means no shared store is configured and callers
// fall back to in-process limiting.
type Limiters struct {
	window  *Window
	log     *zap.Logger
	timeout time.Duration
}

func NewLimiters(client redis.Scripter, log *zap.Logger) *Limiters {
	if client == nil {
		return nil
	}
	return &Limiters{
		window:  NewWindow(client),
		log:     log.Named("ratelimit"),
		timeout: 200 * time.Millisecond,
	}
}

func newRedisClient(cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RateLimit.RedisAddr)
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RateLimit.RedisPassword),
		DB:       cfg.RateLimit.RedisDB,
	})
}

// For returns the limiter for target. Without a shared store it returns the
// local window.
func (l *Limiters) For(target string, policy resilience.RateLimitPolicy) resilience.Limiter {
	if l == nil || policy.Limit <= 0 || policy.Period <= 0 {
		return resilience.NewLocalLimiter(policy, nil)
	}
	return &targetLimiter{
		parent: l,
		key:    "accreditation:ratelimit:" + strings.ToLower(target),
		target: target,
		limit:  policy.Limit,
		period: policy.Period,
		warn:   &rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

type targetLimiter struct {
	parent *Limiters
	key    string
	target string
	limit  int
	period time.Duration
	warn   *rate.Sometimes
}

// Allow fails open: an unreachable store must not turn into rejected calls.
func (t *targetLimiter) Allow(ctx context.Context) (bool, time.Duration) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.parent.timeout)
	defer cancel()

	res, err := t.parent.window.Allow(ctx, t.key, t.limit, t.period)
	if err != nil {
		t.warn.Do(func() {
			t.parent.log.Warn("shared rate limiter unavailable, allowing call",
				zap.String("target", t.target),
				zap.Error(err),
			)
		})
		return true, 0
	}
	return res.Allowed, res.RetryAfter
}
