package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got []Envelope
	err error
}

func (r *recorder) Publish(ctx context.Context, env Envelope) error {
	r.got = append(r.got, env)
	return r.err
}

func TestNew_RoundTripsPayload(t *testing.T) {
	env, err := New("api", OrderCreated, "o-1", OrderPayload{OrderID: "o-1", Status: "pending"})
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "api", env.Producer)

	p, err := Decode[OrderPayload](env)
	require.NoError(t, err)
	assert.Equal(t, "pending", p.Status)
}

func TestFanout_DeliversToAllSinksDespiteFailures(t *testing.T) {
	failing := &recorder{err: errors.New("down")}
	ok := &recorder{}
	f := NewFanout("api", failing)
	f.Add(ok)

	env, err := New("api", StockChanged, "p-1", StockPayload{ProductID: "p-1"})
	require.NoError(t, err)

	err = f.Publish(context.Background(), env)
	assert.Error(t, err)
	assert.Len(t, failing.got, 1)
	assert.Len(t, ok.got, 1)

	f.Emit(context.Background(), OrderDeleted, "o-2", OrderPayload{OrderID: "o-2"})
	assert.Len(t, ok.got, 2)
}

// waitingSink blocks until the publish context ends.
type waitingSink struct{ calls int }

func (w *waitingSink) Publish(ctx context.Context, _ Envelope) error {
	w.calls++
	<-ctx.Done()
	return ctx.Err()
}

func TestFanout_EmitGivesUpOnSlowSink(t *testing.T) {
	slow := &waitingSink{}
	ok := &recorder{}
	f := NewFanout("api", slow, ok)
	f.timeout = 50 * time.Millisecond

	start := time.Now()
	f.Emit(context.WithoutCancel(context.Background()), OrderCreated, "o-1", OrderPayload{OrderID: "o-1"})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, slow.calls)
	assert.Len(t, ok.got, 1)
}

func TestFanout_NilIsNoop(t *testing.T) {
	var f *Fanout
	assert.NotPanics(t, func() {
		f.Emit(context.Background(), OrderCreated, "x", nil)
	})
}

func TestType_IsOrder(t *testing.T) {
	assert.True(t, OrderCancelled.IsOrder())
	assert.False(t, StockChanged.IsOrder())
}
