package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is what handlers see: enqueue an envelope and move on.
type Publisher interface {
	Publish(env Envelope, key []byte)
}

// Producer is a buffered async kafka writer. Writes are fire-and-forget;
// failures are logged by the flush goroutine.
type Producer struct {
	w       *kafka.Writer
	log     *zap.Logger
	inbox   chan kafka.Message
	closeCh chan struct{}
}

func NewProducer(brokers []string, topic string, buf int, log *zap.Logger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		log:     log,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the flush loop until ctx is cancelled, then drains the inbox.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				// Drain without closing the inbox: a late Publish must
				// never panic, it just gets dropped once we return.
				for {
					select {
					case m := <-p.inbox:
						p.write(context.Background(), m)
					default:
						_ = p.w.Close()
						return
					}
				}
			case m := <-p.inbox:
				p.write(ctx, m)
			}
		}
	}()
}

func (p *Producer) write(ctx context.Context, m kafka.Message) {
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Error("kafka write failed", zap.String("topic", p.w.Topic), zap.Error(err))
	}
}

func (p *Producer) Publish(env Envelope, key []byte) {
	body, err := json.Marshal(env)
	if err != nil {
		p.log.Error("event marshal failed", zap.String("event", env.EventType), zap.Error(err))
		return
	}
	select {
	case p.inbox <- kafka.Message{Key: key, Value: body}:
	default:
		p.log.Warn("event inbox full, dropping", zap.String("event", env.EventType))
	}
}

// WaitClosed blocks until the flush goroutine has exited.
func (p *Producer) WaitClosed() { <-p.closeCh }
