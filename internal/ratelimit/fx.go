package ratelimit

import (
	"context"

	"github.com/smallbiznis/accreditation/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(provideLimiters),
)

func provideLimiters(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *Limiters {
	client := newRedisClient(cfg)
	if client == nil {
		log.Info("shared rate limiter disabled, using in-process windows")
		return nil
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return client.Close() },
	})
	return NewLimiters(client, log)
}
