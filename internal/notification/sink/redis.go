package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	notificationdomain "github.com/smallbiznis/accreditation/internal/notification/domain"
)

// RedisStreamSink appends envelopes to the stream "<exchange>:<routingKey>".
type RedisStreamSink struct {
	client redis.Cmdable
	maxLen int64
}

func NewRedisStreamSink(client redis.Cmdable, maxLen int64) *RedisStreamSink {
	return &RedisStreamSink{client: client, maxLen: maxLen}
}

func (s *RedisStreamSink) Name() string { return "redis" }

func (s *RedisStreamSink) Send(ctx context.Context, exchange, routingKey string, env notificationdomain.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: StreamKey(exchange, routingKey),
		Values: map[string]any{
			"id":      env.ID,
			"type":    env.Type,
			"payload": string(body),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return classifyRedisError(err)
	}
	return nil
}

func StreamKey(exchange, routingKey string) string {
	return exchange + ":" + routingKey
}

// classifyRedisError treats server replies as terminal and everything else
// (dial failures, resets, timeouts) as transient.
func classifyRedisError(err error) error {
	var replyErr redis.Error
	if errors.As(err, &replyErr) && !errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("redis xadd: %w", err)
	}
	return fmt.Errorf("%w: redis xadd: %v", notificationdomain.ErrBrokerTransient, err)
}
