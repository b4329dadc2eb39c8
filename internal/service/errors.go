package service

import (
	"errors"
	"fmt"
	"strings"

	"go-fulfillment-ws/internal/model"

	"github.com/google/uuid"
)

var (
	ErrInvalidReference    = errors.New("invalid reference")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotFound            = errors.New("not found")
	ErrConcurrencyConflict = errors.New("concurrent stock update, please retry")
	ErrValidation          = errors.New("validation failed")
	ErrAlreadyExists       = errors.New("already exists")
)

// InvalidReferenceError names the entity an operation could not resolve.
type InvalidReferenceError struct {
	Entity string // "product", "sales user", "assignee"
	ID     uuid.UUID
	Reason string
}

func (e *InvalidReferenceError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s %s %s", e.Entity, e.ID, e.Reason)
}

func (e *InvalidReferenceError) Is(target error) bool { return target == ErrInvalidReference }

type StockShortage struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
	Deficit   int       `json:"deficit"`
}

// InsufficientStockError lists every line that asked for more than it can get.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s: requested %d, available %d (short by %d)", s.Name, s.Requested, s.Available, s.Deficit))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type TransitionError struct {
	From model.OrderStatus
	To   model.OrderStatus
}

func (e *TransitionError) Error() string {
	if e.From.IsTerminal() && (e.To == "" || e.To == e.From) {
		return fmt.Sprintf("order is %s and can no longer be changed", e.From)
	}
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// validationError wraps ErrValidation with a readable message.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
