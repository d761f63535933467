package sink

import (
	"context"

	notificationdomain "github.com/smallbiznis/accreditation/internal/notification/domain"
	"github.com/smallbiznis/accreditation/pkg/log/ctxlogger"
	"go.uber.org/zap"
)

// LogSink writes envelopes to the application log. Used when no broker is
// configured.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("notification.log_sink")}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, exchange, routingKey string, env notificationdomain.Envelope) error {
	ctxlogger.WithContext(ctx, s.log).Info("notification event",
		zap.String("exchange", exchange),
		zap.String("routing_key", routingKey),
		zap.String("event_id", env.ID),
		zap.String("event_type", env.Type),
		zap.String("to", env.Payload.To),
		zap.String("subject", env.Payload.Subject),
	)
	return nil
}
