package events

import (
	"context"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
)

var ErrPublisherClosed = errors.New("events: publisher closed")

// Publisher emits audit events to an external stream. Emission is
// best-effort; callers log failures and continue.
type Publisher interface {
	Publish(ctx context.Context, key []byte, value []byte) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
	mu     sync.Mutex
	closed bool
}

func NewKafkaPublisher(brokers []string, topic string) Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Compression:  kafka.Gzip,
		RequiredAcks: kafka.RequireOne,
	}
	return &kafkaPublisher{writer: writer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, key []byte, value []byte) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPublisherClosed
	}
	p.mu.Unlock()

	return p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

func (p *kafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, key []byte, value []byte) error { return nil }

func (NoopPublisher) Close() error { return nil }
