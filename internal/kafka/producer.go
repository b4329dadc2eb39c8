package kafka

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"go-fulfillment-ws/internal/event"

	"github.com/segmentio/kafka-go"
)

var (
	ErrProducerClosed = errors.New("kafka producer closed")
	ErrInboxFull      = errors.New("kafka producer inbox full")
)

// messageWriter is the subset of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes event envelopes to one topic. Publish only enqueues;
// a single goroutine started by Start drains the inbox to the writer.
type Producer struct {
	w       messageWriter
	inbox   chan kafka.Message
	closeCh chan struct{}

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}, buf)
}

func newProducer(w messageWriter, buf int) *Producer {
	return &Producer{
		w:       w,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start drains the inbox until Close is called, then flushes what is left
// and closes the writer.
func (p *Producer) Start() {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.w.WriteMessages(ctx, m); err != nil {
				log.Printf("kafka: write %s: %v", m.Key, err)
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			log.Printf("kafka: close writer: %v", err)
		}
	}()
}

// Publish enqueues env keyed by its correlation id, so all events of one
// order land on the same partition in order.
func (p *Producer) Publish(ctx context.Context, env event.Envelope) error {
	value, err := Marshal(env)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   PartitionKey(env.CorrelationID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrInboxFull
	}
}

// Close stops accepting messages and lets Start's goroutine flush the rest.
func (p *Producer) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
	})
}

// WaitClosed blocks until the flush started by Close has finished.
func (p *Producer) WaitClosed() { <-p.closeCh }
