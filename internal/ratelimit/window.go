package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// fixedWindowScript counts one call against the current window of KEYS[1].
// The first call of a window starts it and sets its expiry, so every replica
// sharing the key sees the same limitForPeriod permissions until it expires.
const fixedWindowScript = `
local limit = tonumber(ARGV[1])
local period = tonumber(ARGV[2])

local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], period)
end

local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], period)
  ttl = period
end

local allowed = 0
if count <= limit then
  allowed = 1
end

local remaining = limit - count
if remaining < 0 then
  remaining = 0
end

return {allowed, remaining, ttl}
`

// Window is a fixed-window call counter kept in Redis.
type Window struct {
	client redis.Scripter
	script *redis.Script
}

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

func NewWindow(client redis.Scripter) *Window {
	if client == nil {
		return nil
	}
	return &Window{
		client: client,
		script: redis.NewScript(fixedWindowScript),
	}
}

// Allow counts one call against key. At most limit calls are allowed per
// period; a refused call learns when the window refreshes.
func (w *Window) Allow(ctx context.Context, key string, limit int, period time.Duration) (Result, error) {
	if w == nil || w.client == nil {
		return Result{}, errors.New("rate limiter not configured")
	}
	if key == "" {
		return Result{}, errors.New("rate limiter key is empty")
	}
	if limit <= 0 {
		return Result{}, errors.New("rate limiter limit must be positive")
	}
	if period < time.Millisecond {
		return Result{}, errors.New("rate limiter period must be at least 1ms")
	}

	res, err := w.script.Run(ctx, w.client, []string{key}, limit, period.Milliseconds()).Slice()
	if err != nil {
		return Result{}, err
	}
	if len(res) < 3 {
		return Result{}, errors.New("invalid rate limit script response")
	}

	out := Result{
		Allowed:   toInt(res[0]) == 1,
		Remaining: int(toInt(res[1])),
	}
	if !out.Allowed {
		out.RetryAfter = time.Duration(toInt(res[2])) * time.Millisecond
	}
	return out, nil
}

func toInt(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		parsed, _ := strconv.ParseInt(val, 10, 64)
		return parsed
	default:
		return 0
	}
}
