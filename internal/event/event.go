package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	OrderCreated       Type = "order.created"
	OrderUpdated       Type = "order.updated"
	OrderStatusChanged Type = "order.status_changed"
	OrderCancelled     Type = "order.cancelled"
	OrderDeleted       Type = "order.deleted"

	StockChanged   Type = "stock.changed"
	ProductCreated Type = "product.created"
	ProductUpdated Type = "product.updated"
	ProductDeleted Type = "product.deleted"

	UserPresence Type = "user.presence"
)

// IsOrder reports whether t belongs to the order lifecycle.
func (t Type) IsOrder() bool {
	switch t {
	case OrderCreated, OrderUpdated, OrderStatusChanged, OrderCancelled, OrderDeleted:
		return true
	}
	return false
}

// Envelope is the wire shape shared by every sink: websocket clients,
// the Kafka topic and the status cache all see the same JSON.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     Type            `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order or product id
	Payload       json.RawMessage `json:"payload"`
}

func New(producer string, typ Type, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     typ,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// Decode unpacks an envelope payload into T.
func Decode[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Fanout delivers each envelope to every registered sink. A failing sink
// does not stop delivery to the others.
type Fanout struct {
	producer string
	sinks    []Publisher
	timeout  time.Duration
}

// emitTimeout caps how long Emit waits on the sinks for one event.
const emitTimeout = 2 * time.Second

func NewFanout(producer string, sinks ...Publisher) *Fanout {
	return &Fanout{producer: producer, sinks: sinks, timeout: emitTimeout}
}

func (f *Fanout) Add(p Publisher) {
	f.sinks = append(f.sinks, p)
}

func (f *Fanout) Publish(ctx context.Context, env Envelope) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit builds an envelope and publishes it, logging failures. Events are
// notifications; a sink outage must not fail the operation that caused them.
func (f *Fanout) Emit(ctx context.Context, typ Type, correlationID string, payload any) {
	if f == nil {
		return
	}
	env, err := New(f.producer, typ, correlationID, payload)
	if err != nil {
		log.Printf("event: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if err := f.Publish(ctx, env); err != nil {
		log.Printf("event: publish %s %s: %v", typ, correlationID, err)
	}
}
