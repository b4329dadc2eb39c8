package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-fulfillment-ws/internal/event"
	"go-fulfillment-ws/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// kv is the slice of the go-redis API the cache uses.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// OrderCache keeps a short-lived copy of each order's status for pollers
// and remembers which order an idempotency key produced. The database
// stays the source of truth.
type OrderCache struct {
	rdb kv
}

func NewOrderCache(rdb *redis.Client) *OrderCache {
	return &OrderCache{rdb: rdb}
}

// GetStatus returns nil without error on a cache miss.
func (c *OrderCache) GetStatus(ctx context.Context, orderID uuid.UUID) (*model.OrderStatusView, error) {
	raw, err := c.rdb.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var view model.OrderStatusView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("decode cached status: %w", err)
	}
	return &view, nil
}

func (c *OrderCache) SetStatus(ctx context.Context, view model.OrderStatusView) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf(KeyOrderStatus, view.OrderID), raw, TTLStatusCache).Err()
}

// FillStatus stores view only when no entry exists, so a poller that read
// the database before a change never overwrites the newer status the
// change's event wrote.
func (c *OrderCache) FillStatus(ctx context.Context, view model.OrderStatusView) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.rdb.SetNX(ctx, fmt.Sprintf(KeyOrderStatus, view.OrderID), raw, TTLStatusCache).Err()
}

func (c *OrderCache) LookupIdempotent(ctx context.Context, key string) (uuid.UUID, bool, error) {
	v, err := c.rdb.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, key)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("cached order id %q: %w", v, err)
	}
	return id, true, nil
}

// RememberIdempotent keeps the first order stored under key.
func (c *OrderCache) RememberIdempotent(ctx context.Context, key string, orderID uuid.UUID) error {
	return c.rdb.SetNX(ctx, fmt.Sprintf(KeyIdemOrderCreate, key), orderID.String(), TTLIdempotency).Err()
}

// Publish refreshes the cached status from order lifecycle events.
func (c *OrderCache) Publish(ctx context.Context, env event.Envelope) error {
	if !env.EventType.IsOrder() {
		return nil
	}
	p, err := event.Decode[event.OrderPayload](env)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(p.OrderID)
	if err != nil {
		return fmt.Errorf("order event without order id: %w", err)
	}
	if env.EventType == event.OrderDeleted {
		return c.rdb.Del(ctx, fmt.Sprintf(KeyOrderStatus, id)).Err()
	}

	view := model.OrderStatusView{
		OrderID:   id,
		Status:    model.OrderStatus(p.Status),
		UpdatedAt: p.UpdatedAt,
	}
	if p.AssigneeID != "" {
		if a, err := uuid.Parse(p.AssigneeID); err == nil {
			view.AssigneeID = &a
		}
	}
	return c.SetStatus(ctx, view)
}
