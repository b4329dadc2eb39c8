package redisx

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go-fulfillment-ws/internal/event"
	"go-fulfillment-ws/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKV is a map-backed stand-in that ignores TTLs.
type fakeKV struct {
	data map[string]string
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string]string{}} }

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.data[key] = toString(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = toString(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case string:
		return t
	}
	return fmt.Sprint(v)
}

func TestOrderCache_StatusMissAndHit(t *testing.T) {
	ctx := context.Background()
	c := &OrderCache{rdb: newFakeKV()}
	id := uuid.New()

	view, err := c.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, view)

	require.NoError(t, c.SetStatus(ctx, model.OrderStatusView{OrderID: id, Status: model.OrderInProgress}))
	view, err = c.GetStatus(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, model.OrderInProgress, view.Status)
}

func TestOrderCache_FillStatusKeepsNewerEntry(t *testing.T) {
	ctx := context.Background()
	c := &OrderCache{rdb: newFakeKV()}
	id := uuid.New()

	// The event for the move lands between the poller's read and its fill.
	require.NoError(t, c.SetStatus(ctx, model.OrderStatusView{OrderID: id, Status: model.OrderInProgress}))
	require.NoError(t, c.FillStatus(ctx, model.OrderStatusView{OrderID: id, Status: model.OrderPending}))

	view, err := c.GetStatus(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, model.OrderInProgress, view.Status)

	other := uuid.New()
	require.NoError(t, c.FillStatus(ctx, model.OrderStatusView{OrderID: other, Status: model.OrderPending}))
	view, err = c.GetStatus(ctx, other)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, model.OrderPending, view.Status)
}

func TestOrderCache_IdempotencyKeepsFirstOrder(t *testing.T) {
	ctx := context.Background()
	c := &OrderCache{rdb: newFakeKV()}
	first, second := uuid.New(), uuid.New()

	_, ok, err := c.LookupIdempotent(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.RememberIdempotent(ctx, "k1", first))
	require.NoError(t, c.RememberIdempotent(ctx, "k1", second))

	got, ok, err := c.LookupIdempotent(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, got)
}

func TestOrderCache_PublishTracksOrderEvents(t *testing.T) {
	ctx := context.Background()
	store := newFakeKV()
	c := &OrderCache{rdb: store}
	id, assignee := uuid.New(), uuid.New()

	env, err := event.New("test", event.OrderStatusChanged, id.String(), event.OrderPayload{
		OrderID:    id.String(),
		Status:     string(model.OrderCompleted),
		AssigneeID: assignee.String(),
	})
	require.NoError(t, err)
	require.NoError(t, c.Publish(ctx, env))

	view, err := c.GetStatus(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, model.OrderCompleted, view.Status)
	assert.Equal(t, assignee, *view.AssigneeID)

	del, err := event.New("test", event.OrderDeleted, id.String(), event.OrderPayload{OrderID: id.String()})
	require.NoError(t, err)
	require.NoError(t, c.Publish(ctx, del))
	assert.Empty(t, store.data)

	stock, err := event.New("test", event.StockChanged, "p", event.StockPayload{})
	require.NoError(t, err)
	assert.NoError(t, c.Publish(ctx, stock))
}
