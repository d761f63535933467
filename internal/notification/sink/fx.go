package sink

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/accreditation/internal/config"
	notificationdomain "github.com/smallbiznis/accreditation/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification.sink",
	fx.Provide(NewSink),
)

// NewSink selects the broker named by cfg.Notify.Broker.
func NewSink(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) notificationdomain.Sink {
	switch cfg.Notify.Broker {
	case config.BrokerRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Notify.RedisAddr,
			Password: strings.TrimSpace(cfg.Notify.RedisPassword),
		})
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return client.Close() },
		})
		log.Info("notification sink selected", zap.String("broker", config.BrokerRedis), zap.String("addr", cfg.Notify.RedisAddr))
		return NewRedisStreamSink(client, cfg.Notify.StreamMaxLen)
	case config.BrokerAMQP:
		s := NewAMQPSink(cfg.Notify.AMQPURL, log)
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return s.Close() },
		})
		log.Info("notification sink selected", zap.String("broker", config.BrokerAMQP))
		return s
	default:
		log.Info("notification sink selected", zap.String("broker", config.BrokerLog))
		return NewLogSink(log)
	}
}
