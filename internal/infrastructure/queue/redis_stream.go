package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const bodyField = "trigger"

// RedisStreamTransport implements Transport on a redis stream with a consumer
// group. Idle pending messages are reclaimed with XAUTOCLAIM, and messages
// delivered MaxDeliveries times are moved to "<stream>:dead".
type RedisStreamTransport struct {
	client redis.Cmdable
	stream string
	group  string
	dead   string
	opts   Options
	logger *zap.Logger
	closed atomic.Bool
}

// NewRedisStreamTransport creates the consumer group if needed
func NewRedisStreamTransport(ctx context.Context, client redis.Cmdable, stream, group string, opts Options, logger *zap.Logger) (*RedisStreamTransport, error) {
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group %s on %s: %w", group, stream, err)
	}
	return &RedisStreamTransport{
		client: client,
		stream: stream,
		group:  group,
		dead:   stream + ":dead",
		opts:   opts.withDefaults(),
		logger: logger,
	}, nil
}

// Publish appends the message with XADD
func (t *RedisStreamTransport) Publish(ctx context.Context, body []byte) (string, error) {
	if t.closed.Load() {
		return "", ErrQueueClosed
	}
	id, err := t.client.XAdd(ctx, &redis.XAddArgs{
		Stream: t.stream,
		Values: map[string]any{bodyField: string(body)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to %s: %w", t.stream, err)
	}
	return id, nil
}

// Receive reclaims idle pending messages first and otherwise reads new ones
func (t *RedisStreamTransport) Receive(ctx context.Context, consumer string, max int) ([]Delivery, error) {
	if t.closed.Load() {
		return nil, ErrQueueClosed
	}
	if max <= 0 {
		max = 1
	}

	reclaimed, err := t.reclaim(ctx, consumer, max)
	if err != nil {
		return nil, err
	}
	if len(reclaimed) > 0 {
		return reclaimed, nil
	}

	streams, err := t.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    t.group,
		Consumer: consumer,
		Streams:  []string{t.stream, ">"},
		Count:    int64(max),
		Block:    t.opts.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to read from %s: %w", t.stream, err)
	}

	var out []Delivery
	for _, s := range streams {
		for _, msg := range s.Messages {
			out = append(out, Delivery{ID: msg.ID, Body: messageBody(msg), Attempt: 1})
		}
	}
	return out, nil
}

// reclaim takes over messages idle longer than ClaimMinIdle. Messages that
// reached MaxDeliveries are dead-lettered instead of returned.
func (t *RedisStreamTransport) reclaim(ctx context.Context, consumer string, max int) ([]Delivery, error) {
	msgs, _, err := t.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   t.stream,
		Group:    t.group,
		Consumer: consumer,
		MinIdle:  t.opts.ClaimMinIdle,
		Start:    "0-0",
		Count:    int64(max),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to reclaim from %s: %w", t.stream, err)
	}

	out := make([]Delivery, 0, len(msgs))
	for _, msg := range msgs {
		attempt, err := t.deliveryCount(ctx, msg.ID)
		if err != nil {
			return nil, err
		}
		if attempt > t.opts.MaxDeliveries {
			if err := t.deadLetter(ctx, msg, attempt-1); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, Delivery{ID: msg.ID, Body: messageBody(msg), Attempt: attempt})
	}
	return out, nil
}

func (t *RedisStreamTransport) deliveryCount(ctx context.Context, id string) (int, error) {
	pending, err := t.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: t.stream,
		Group:  t.group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read pending entry %s: %w", id, err)
	}
	if len(pending) == 0 {
		return 1, nil
	}
	return int(pending[0].RetryCount), nil
}

func (t *RedisStreamTransport) deadLetter(ctx context.Context, msg redis.XMessage, deliveries int) error {
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: t.dead,
			Values: map[string]any{
				bodyField:     messageBody(msg),
				"original_id": msg.ID,
				"deliveries":  deliveries,
			},
		})
		pipe.XAck(ctx, t.stream, t.group, msg.ID)
		pipe.XDel(ctx, t.stream, msg.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to dead-letter %s: %w", msg.ID, err)
	}
	t.logger.Warn("Trigger message dead-lettered",
		zap.String("stream", t.stream),
		zap.String("message_id", msg.ID),
		zap.Int("deliveries", deliveries),
	)
	return nil
}

// Extend re-claims the messages for consumer with JUSTID, which resets their
// idle time without counting a delivery
func (t *RedisStreamTransport) Extend(ctx context.Context, consumer string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	err := t.client.XClaimJustID(ctx, &redis.XClaimArgs{
		Stream:   t.stream,
		Group:    t.group,
		Consumer: consumer,
		MinIdle:  0,
		Messages: ids,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to extend %v on %s: %w", ids, t.stream, err)
	}
	return nil
}

// Ack acknowledges and deletes processed messages
func (t *RedisStreamTransport) Ack(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAck(ctx, t.stream, t.group, ids...)
		pipe.XDel(ctx, t.stream, ids...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to ack %v on %s: %w", ids, t.stream, err)
	}
	return nil
}

// Close stops further publishing and receiving. The redis client is owned by the caller.
func (t *RedisStreamTransport) Close() error {
	t.closed.Store(true)
	return nil
}

func messageBody(msg redis.XMessage) []byte {
	switch v := msg.Values[bodyField].(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	default:
		return nil
	}
}

// Ensure RedisStreamTransport implements Transport
var _ Transport = (*RedisStreamTransport)(nil)
