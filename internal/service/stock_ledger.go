package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"

	"github.com/google/uuid"
)

type stockChange struct {
	Product model.Product // state after the change
	Delta   int
	Type    model.MovementType
}

// stockLedger applies quantity deltas inside one transaction and journals
// them as stock movements.
type stockLedger struct {
	tx      repository.Store
	changes []stockChange
}

func newStockLedger(tx repository.Store) *stockLedger {
	return &stockLedger{tx: tx}
}

func (l *stockLedger) adjust(ctx context.Context, productID uuid.UUID, delta int, typ model.MovementType) error {
	if delta == 0 {
		return nil
	}
	p, err := l.tx.Products().AdjustQuantity(ctx, productID, delta)
	switch {
	case errors.Is(err, repository.ErrQuantityConflict):
		return fmt.Errorf("product %s: %w", productID, ErrConcurrencyConflict)
	case errors.Is(err, repository.ErrNotFound):
		return &InvalidReferenceError{Entity: "product", ID: productID}
	case err != nil:
		return fmt.Errorf("adjust product %s: %w", productID, err)
	}
	l.changes = append(l.changes, stockChange{Product: *p, Delta: delta, Type: typ})
	return nil
}

// record journals a change that was written by other means, such as an
// admin setting an absolute quantity.
func (l *stockLedger) record(p model.Product, delta int, typ model.MovementType) {
	if delta != 0 {
		l.changes = append(l.changes, stockChange{Product: p, Delta: delta, Type: typ})
	}
}

func (l *stockLedger) flush(ctx context.Context, orderID *uuid.UUID, note, actor string) error {
	if len(l.changes) == 0 {
		return nil
	}
	movements := make([]model.StockMovement, 0, len(l.changes))
	for _, c := range l.changes {
		m := model.StockMovement{
			ProductID:    c.Product.ID,
			OrderID:      orderID,
			Type:         c.Type,
			Quantity:     c.Delta,
			BalanceAfter: c.Product.AvailableQuantity,
			Note:         note,
		}
		m.CreatedBy = actor
		m.UpdatedBy = actor
		movements = append(movements, m)
	}
	if err := l.tx.Movements().Create(ctx, movements); err != nil {
		return fmt.Errorf("journal stock movements: %w", err)
	}
	return nil
}

// sortedIDs returns ids in ascending byte order, the order rows are locked in.
func sortedIDs(ids map[uuid.UUID]bool) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}
