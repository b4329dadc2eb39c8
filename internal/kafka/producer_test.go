package kafka

import (
	"context"
	"sync"
	"testing"

	"go-fulfillment-ws/internal/event"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type memWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducer_FlushesOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := &memWriter{}
	p := newProducer(w, 8)
	p.Start()

	for _, id := range []string{"o-1", "o-2", "o-1"} {
		env, err := event.New("test", event.OrderUpdated, id, event.OrderPayload{OrderID: id})
		require.NoError(t, err)
		require.NoError(t, p.Publish(context.Background(), env))
	}

	p.Close()
	p.WaitClosed()

	require.Len(t, w.msgs, 3)
	assert.True(t, w.closed)
	assert.Equal(t, []byte("o-2"), w.msgs[1].Key)

	env, err := UnmarshalEnvelope(w.msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, event.OrderUpdated, env.EventType)
	assert.Equal(t, "order.updated", string(w.msgs[0].Headers[0].Value))
}

func TestProducer_RejectsAfterCloseAndWhenFull(t *testing.T) {
	p := newProducer(&memWriter{}, 1)
	env, err := event.New("test", event.OrderCreated, "o-1", nil)
	require.NoError(t, err)

	// not started: the single slot fills up
	require.NoError(t, p.Publish(context.Background(), env))
	assert.ErrorIs(t, p.Publish(context.Background(), env), ErrInboxFull)

	p.Close()
	p.Close()
	assert.ErrorIs(t, p.Publish(context.Background(), env), ErrProducerClosed)
}
