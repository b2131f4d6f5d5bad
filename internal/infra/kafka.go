package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"maaztelecom/internal/events"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher buffers envelopes in an inbox and writes them from a single
// goroutine, keyed by correlation id so one sale's events stay ordered.
type KafkaPublisher struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
}

func NewKafkaPublisher(brokers []string, topic string, buf int) *KafkaPublisher {
	if buf <= 0 {
		buf = 256
	}
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: 10 * time.Second,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the writer loop until ctx is cancelled, then flushes what is
// left in the inbox and closes the writer.
func (p *KafkaPublisher) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case m := <-p.inbox:
				p.write(context.Background(), m)
			}
		}
	}()
}

func (p *KafkaPublisher) drain() {
	for {
		select {
		case m := <-p.inbox:
			p.write(context.Background(), m)
		default:
			if err := p.w.Close(); err != nil {
				log.Warn().Err(err).Msg("kafka: close writer")
			}
			return
		}
	}
}

func (p *KafkaPublisher) write(ctx context.Context, m kafka.Message) {
	if err := p.w.WriteMessages(ctx, m); err != nil {
		log.Error().Err(err).Str("key", string(m.Key)).Msg("kafka: write event")
	}
}

// Publish enqueues env. A full inbox drops the event with an error rather
// than blocking the request path.
func (p *KafkaPublisher) Publish(_ context.Context, env events.Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("kafka: marshal envelope: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(env.CorrelationID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}
	select {
	case p.inbox <- msg:
		return nil
	default:
		return fmt.Errorf("kafka: inbox full, dropped %s", env.EventType)
	}
}

// WaitClosed blocks until the writer loop has flushed and exited.
func (p *KafkaPublisher) WaitClosed() { <-p.closeCh }

var _ events.Publisher = (*KafkaPublisher)(nil)
