package publisher

import (
	"context"
	"errors"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/accreditation/internal/clock"
	notificationdomain "github.com/smallbiznis/accreditation/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/accreditation/internal/observability/metrics"
	"github.com/smallbiznis/accreditation/internal/resilience"
	"github.com/smallbiznis/accreditation/pkg/log/ctxlogger"
	"github.com/smallbiznis/accreditation/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config controls delivery retries. There is no breaker: a broker that
// recovers must be usable by the very next publish.
type Config struct {
	Exchange    string
	RoutingKey  string
	Retry       resilience.RetryPolicy
	SendTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Exchange:   "accreditation.exchange",
		RoutingKey: "accreditation.pdf",
		Retry: resilience.RetryPolicy{
			MaxAttempts:       3,
			InitialBackoff:    2 * time.Second,
			BackoffMultiplier: 2,
		},
		SendTimeout: 5 * time.Second,
	}
}

type Params struct {
	fx.In

	Sink    notificationdomain.Sink
	Config  Config
	Log     *zap.Logger
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Publisher struct {
	sink    notificationdomain.Sink
	cfg     Config
	log     *zap.Logger
	clock   clock.Clock
	metrics *obsmetrics.Metrics
	// timer paces retries; nil uses a real timer.
	timer backoff.Timer
}

func New(p Params) *Publisher {
	cfg := p.Config
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultConfig().Retry
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Publisher{
		sink:    p.Sink,
		cfg:     cfg,
		log:     p.Log.Named("notification.publisher"),
		clock:   clk,
		metrics: p.Metrics,
	}
}

// Publish sends event, retrying broker-transient failures with exponential
// backoff. Once retries are exhausted, or on any other failure, the loss is
// logged and counted and reported only through the Result.
func (p *Publisher) Publish(ctx context.Context, event notificationdomain.Event, recordID int64) notificationdomain.Result {
	// Delivery outlives the request that triggered it.
	ctx = context.WithoutCancel(ctx)

	env := p.envelope(ctx, event)
	log := ctxlogger.WithContext(ctx, p.log).With(
		zap.Int64("accreditation_id", recordID),
		zap.String("event_id", env.ID),
		zap.String("sink", p.sink.Name()),
	)

	result := notificationdomain.Result{EventID: env.ID}
	deliver := func() error {
		result.Attempts++
		err := p.send(ctx, env)
		if err == nil {
			return nil
		}
		result.Err = err
		if !errors.Is(err, notificationdomain.ErrBrokerTransient) {
			return backoff.Permanent(err)
		}
		log.Warn("receipt notification send failed",
			zap.Int("attempt", result.Attempts),
			zap.Int("max_attempts", p.cfg.Retry.MaxAttempts),
			zap.Error(err),
		)
		return err
	}

	err := backoff.RetryNotifyWithTimer(deliver, backoff.WithContext(p.cfg.Retry.NewBackOff(), ctx), nil, p.timer)
	if err == nil {
		result.Delivered = true
		result.Err = nil
		p.metrics.RecordNotificationSent(ctx, p.sink.Name(), result.Attempts)
		log.Info("receipt notification sent", zap.Int("attempt", result.Attempts))
		return result
	}

	reason := "retries_exhausted"
	if !errors.Is(err, notificationdomain.ErrBrokerTransient) {
		reason = "unexpected_error"
	}
	p.drop(ctx, log, result, reason)
	return result
}

func (p *Publisher) send(ctx context.Context, env notificationdomain.Envelope) error {
	if p.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.SendTimeout)
		defer cancel()
	}
	return p.sink.Send(ctx, p.cfg.Exchange, p.cfg.RoutingKey, env)
}

func (p *Publisher) drop(ctx context.Context, log *zap.Logger, result notificationdomain.Result, reason string) {
	log.Error("receipt notification dropped",
		zap.String("reason", reason),
		zap.Int("attempts", result.Attempts),
		zap.Error(result.Err),
	)
	p.metrics.RecordNotificationLost(ctx, p.sink.Name(), reason)
}

func (p *Publisher) envelope(ctx context.Context, event notificationdomain.Event) notificationdomain.Envelope {
	now := p.clock.Now()
	return notificationdomain.Envelope{
		ID:            ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Type:          notificationdomain.EventTypeAccreditationReceipt,
		OccurredAt:    now,
		CorrelationID: correlation.ExtractCorrelationID(ctx),
		Metadata:      correlation.Metadata(ctx),
		Payload:       event,
	}
}
