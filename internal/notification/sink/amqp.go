package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	notificationdomain "github.com/smallbiznis/accreditation/internal/notification/domain"
	"go.uber.org/zap"
)

// defaultDialTimeout bounds a dial whose context carries no deadline.
const defaultDialTimeout = 5 * time.Second

// AMQPSink publishes persistent JSON messages to a durable topic exchange.
// The connection is dialed on first use and re-dialed after a failure. The
// mutex only guards the connection fields; dialing and publishing run
// outside it so a stalled broker holds up no sender beyond its own context.
type AMQPSink struct {
	url  string
	log  *zap.Logger
	dial func(ctx context.Context, url string) (*amqp.Connection, error)

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

func NewAMQPSink(url string, log *zap.Logger) *AMQPSink {
	return &AMQPSink{
		url:      url,
		log:      log.Named("notification.amqp"),
		declared: map[string]bool{},
		dial:     dialContext,
	}
}

// dialContext bounds the TCP connect and the AMQP handshake by the time left
// on ctx.
func dialContext(ctx context.Context, url string) (*amqp.Connection, error) {
	timeout := defaultDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Send(ctx context.Context, exchange, routingKey string, env notificationdomain.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ch, err := s.channel(ctx)
	if err != nil {
		return fmt.Errorf("%w: amqp connect: %v", notificationdomain.ErrBrokerTransient, err)
	}

	if !s.isDeclared(ch, exchange) {
		if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return s.fail(ch, "declare exchange", err)
		}
		s.markDeclared(ch, exchange)
	}

	err = ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.ID,
		Type:          env.Type,
		Timestamp:     env.OccurredAt,
		CorrelationId: env.CorrelationID,
		Body:          body,
	})
	if err != nil {
		return s.fail(ch, "publish", err)
	}
	return nil
}

func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

// channel returns the live channel or dials a new one. Concurrent senders
// that find no live channel each dial; the first to finish installs its
// connection and the others close theirs.
func (s *AMQPSink) channel(ctx context.Context) (*amqp.Channel, error) {
	s.mu.Lock()
	if s.healthy() {
		ch := s.ch
		s.mu.Unlock()
		return ch, nil
	}
	s.mu.Unlock()

	conn, err := s.dial(ctx, s.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.healthy() {
		_ = conn.Close()
		return s.ch, nil
	}
	s.reset()
	s.conn = conn
	s.ch = ch
	s.log.Info("amqp connection established")
	return ch, nil
}

func (s *AMQPSink) healthy() bool {
	return s.ch != nil && !s.ch.IsClosed() && s.conn != nil && !s.conn.IsClosed()
}

func (s *AMQPSink) isDeclared(ch *amqp.Channel, exchange string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch == ch && s.declared[exchange]
}

func (s *AMQPSink) markDeclared(ch *amqp.Channel, exchange string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == ch {
		s.declared[exchange] = true
	}
}

// fail drops the connection when the broker error leaves it unusable.
func (s *AMQPSink) fail(ch *amqp.Channel, op string, err error) error {
	if isTransientAMQP(err) {
		s.log.Warn("amqp operation failed, resetting connection", zap.String("op", op), zap.Error(err))
		s.mu.Lock()
		if s.ch == ch {
			s.reset()
		}
		s.mu.Unlock()
		return fmt.Errorf("%w: amqp %s: %v", notificationdomain.ErrBrokerTransient, op, err)
	}
	return fmt.Errorf("amqp %s: %w", op, err)
}

func (s *AMQPSink) reset() {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.ch = nil
	s.conn = nil
	s.declared = map[string]bool{}
}

func isTransientAMQP(err error) bool {
	if errors.Is(err, amqp.ErrClosed) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		return amqpErr.Recover || amqpErr.Code == amqp.ChannelError || amqpErr.Code == amqp.ConnectionForced
	}
	return true
}
