package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Deduper mirrors realtime.Deduper without importing it, so this package
// stays independent of redis.
type Deduper interface {
	MarkOnce(ctx context.Context, scope, id string) (bool, error)
}

// ApplyFunc applies one verified payment to storage. It must be idempotent
// at the business level; the consumer additionally filters duplicate event
// ids before calling it.
type ApplyFunc func(ctx context.Context, p PaymentVerifiedPayload) error

const dedupScope = "payments"

// Consumer reads payment events from kafka and applies them once each.
type Consumer struct {
	r     *kafka.Reader
	dedup Deduper
	apply ApplyFunc
	log   *zap.Logger
}

func NewConsumer(brokers []string, group, topic string, dedup Deduper, apply ApplyFunc, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  group,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{r: r, dedup: dedup, apply: apply, log: log}
}

// Start blocks until ctx is cancelled or the reader fails.
func (c *Consumer) Start(ctx context.Context) error {
	defer c.r.Close()

	for {
		// FetchMessage, not ReadMessage: with a GroupID set, ReadMessage
		// commits on its own, which would lose a failed apply. The offset
		// only moves after Handle succeeds.
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return err
		}

		if err := c.Handle(ctx, m.Value); err != nil {
			c.log.Error("payment event apply failed", zap.Error(err))
			time.Sleep(200 * time.Millisecond)
			continue // uncommitted, so the event is redelivered
		}

		if err := c.r.CommitMessages(ctx, m); err != nil {
			c.log.Error("kafka commit failed", zap.Error(err))
		}
	}
}

// Handle decodes, deduplicates and applies one raw event. Split out from
// Start so it can be exercised without a broker.
func (c *Consumer) Handle(ctx context.Context, raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Malformed events can never succeed; drop instead of retrying.
		c.log.Warn("dropping malformed event", zap.Error(err))
		return nil
	}
	if env.EventType != EventPaymentVerified {
		return nil
	}

	first, err := c.dedup.MarkOnce(ctx, dedupScope, env.EventID)
	if err != nil {
		return err
	}
	if !first {
		c.log.Debug("skipping duplicate event", zap.String("event_id", env.EventID))
		return nil
	}

	var p PaymentVerifiedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		c.log.Warn("dropping event with malformed payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	return c.apply(ctx, p)
}
