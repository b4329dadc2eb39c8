package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go-fulfillment-ws/internal/event"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"
	"go-fulfillment-ws/pkg/validator"

	"github.com/google/uuid"
)

// Actor is the authenticated user behind a call, used for audit fields
// and event attribution.
type Actor struct {
	ID    uuid.UUID
	Name  string
	Email string
}

func (a Actor) ref() event.UserRef {
	return event.UserRef{ID: a.ID.String(), Name: a.Name, Email: a.Email}
}

type OrderItemInput struct {
	ProductID         uuid.UUID `json:"product_id" validate:"uuid_required"`
	RequestedQuantity int       `json:"requested_quantity" validate:"gt=0"`
}

type CreateOrderRequest struct {
	SalesUserID    uuid.UUID        `json:"sales_user_id" validate:"uuid_required"`
	AssigneeID     *uuid.UUID       `json:"assignee_id"`
	Items          []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	IdempotencyKey string           `json:"-" validate:"max=128"`
}

// UpdateOrderRequest is a partial update. Nil fields are left unchanged;
// a non-nil Items replaces every line of the order.
type UpdateOrderRequest struct {
	AssigneeID *uuid.UUID         `json:"assignee_id"`
	Status     *model.OrderStatus `json:"status"`
	Items      []OrderItemInput   `json:"items" validate:"omitempty,dive"`
}

// OrderCache is the optional fast path for status polling and create
// idempotency.
type OrderCache interface {
	GetStatus(ctx context.Context, orderID uuid.UUID) (*model.OrderStatusView, error)
	FillStatus(ctx context.Context, view model.OrderStatusView) error
	LookupIdempotent(ctx context.Context, key string) (uuid.UUID, bool, error)
	RememberIdempotent(ctx context.Context, key string, orderID uuid.UUID) error
}

type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest, actor Actor) (*model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, req UpdateOrderRequest, actor Actor) (*model.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID, actor Actor) (*model.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID, actor Actor) error
	GetOrderStatus(ctx context.Context, id uuid.UUID) (*model.OrderStatusView, error)
	GetOrderMovements(ctx context.Context, id uuid.UUID) ([]model.StockMovement, error)
}

type orderService struct {
	store  repository.Store
	events *event.Fanout
	cache  OrderCache
	locks  *keyedMutex
}

// NewOrderService wires the order engine. events and cache may be nil.
func NewOrderService(store repository.Store, events *event.Fanout, cache OrderCache) OrderService {
	return &orderService{
		store:  store,
		events: events,
		cache:  cache,
		locks:  newKeyedMutex(),
	}
}

func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest, actor Actor) (*model.Order, error) {
	// 1. Validate input shape
	if err := validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := checkDuplicateLines(req.Items); err != nil {
		return nil, err
	}

	// 2. A retried request returns the order it already created
	var idemKey *string
	if req.IdempotencyKey != "" {
		k := req.SalesUserID.String() + ":" + req.IdempotencyKey
		idemKey = &k
	}
	if idemKey != nil && s.cache != nil {
		if id, ok, err := s.cache.LookupIdempotent(ctx, *idemKey); err != nil {
			log.Printf("order: idempotency lookup failed: %v", err)
		} else if ok {
			if existing, err := s.GetOrder(ctx, id); err == nil {
				return existing, nil
			}
		}
	}

	// 3. Check references and stock, reserve, persist; all or nothing
	var orderID uuid.UUID
	var changes []stockChange
	var replayed bool
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if idemKey != nil {
			existing, err := tx.Orders().FindByIdempotencyKey(ctx, *idemKey)
			switch {
			case err == nil:
				orderID, replayed = existing.ID, true
				return nil
			case !errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("idempotency lookup: %w", err)
			}
		}
		if _, err := requireUser(ctx, tx, req.SalesUserID, model.RoleSales, "sales user"); err != nil {
			return err
		}
		assigneeID := req.AssigneeID
		if assigneeID != nil {
			if _, err := requireUser(ctx, tx, *assigneeID, model.RoleWarehouse, "assignee"); err != nil {
				return err
			}
		}

		wanted := make(map[uuid.UUID]bool, len(req.Items))
		for _, it := range req.Items {
			wanted[it.ProductID] = true
		}
		products, err := lockProducts(ctx, tx, wanted)
		if err != nil {
			return err
		}
		for _, it := range req.Items {
			if _, ok := products[it.ProductID]; !ok {
				return &InvalidReferenceError{Entity: "product", ID: it.ProductID}
			}
		}
		if err := checkStock(req.Items, products, nil); err != nil {
			return err
		}

		ledger := newStockLedger(tx)
		qty := requestedByProduct(req.Items)
		for _, id := range sortedIDs(wanted) {
			if err := ledger.adjust(ctx, id, -qty[id], model.MovementReserve); err != nil {
				return err
			}
		}

		if assigneeID == nil {
			picked, err := pickLeastBusy(ctx, tx)
			if err != nil {
				return err
			}
			if picked != nil {
				assigneeID = &picked.ID
			}
		}

		order := &model.Order{
			SalesUserID: req.SalesUserID,
			AssigneeID:  assigneeID,
			Status:      model.OrderPending,
			Items:       buildItems(req.Items),

			IdempotencyKey: idemKey,
		}
		order.CreatedBy = actor.ID.String()
		order.UpdatedBy = actor.ID.String()
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := ledger.flush(ctx, &order.ID, "reserved for new order", actor.ID.String()); err != nil {
			return err
		}
		orderID, changes = order.ID, ledger.changes
		return nil
	})
	if idemKey != nil && errors.Is(err, repository.ErrDuplicate) {
		// A concurrent retry with the same key committed first.
		existing, lookupErr := s.store.Orders().FindByIdempotencyKey(ctx, *idemKey)
		if lookupErr != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", lookupErr)
		}
		orderID, replayed, err = existing.ID, true, nil
	}
	if err != nil {
		return nil, err
	}

	if idemKey != nil && s.cache != nil {
		if err := s.cache.RememberIdempotent(ctx, *idemKey, orderID); err != nil {
			log.Printf("order: remember idempotency key: %v", err)
		}
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if replayed {
		return order, nil
	}
	s.publishOrder(ctx, event.OrderCreated, order, "", actor,
		fmt.Sprintf("%s created order with %d line(s)", actor.Name, len(order.Items)))
	s.publishStock(ctx, changes, &orderID, actor)
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.store.Orders().FindByID(ctx, id)
	if err != nil {
		return nil, notFound("order", id, err)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationError("unknown status %q", filter.Status)
	}
	orders, err := s.store.Orders().FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) UpdateOrder(ctx context.Context, id uuid.UUID, req UpdateOrderRequest, actor Actor) (*model.Order, error) {
	// 1. Validate input shape
	if req.Items != nil {
		if len(req.Items) == 0 {
			return nil, validationError("an order needs at least one item")
		}
		if err := validator.Validate(req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if err := checkDuplicateLines(req.Items); err != nil {
			return nil, err
		}
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, validationError("unknown status %q", *req.Status)
	}
	if req.Status != nil && *req.Status == model.OrderCancelled && req.Items != nil {
		return nil, validationError("items cannot be replaced while cancelling")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	var prev model.OrderStatus
	var changes []stockChange
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound("order", id, err)
		}
		prev = order.Status

		// 2. Terminal orders accept nothing
		if order.Status.IsTerminal() {
			to := order.Status
			if req.Status != nil {
				to = *req.Status
			}
			return &TransitionError{From: order.Status, To: to}
		}

		ledger := newStockLedger(tx)
		if req.Status != nil && *req.Status == model.OrderCancelled {
			if err := cancelLocked(ctx, tx, ledger, order, req.AssigneeID); err != nil {
				return err
			}
		} else {
			// 3. Check the move first so a bad edge writes nothing
			if req.Status != nil && !model.CanTransition(order.Status, *req.Status) {
				return &TransitionError{From: order.Status, To: *req.Status}
			}
			if req.AssigneeID != nil {
				if _, err := requireUser(ctx, tx, *req.AssigneeID, model.RoleWarehouse, "assignee"); err != nil {
					return err
				}
				order.AssigneeID = req.AssigneeID
			}
			if req.Items != nil {
				if err := replaceItems(ctx, tx, ledger, order, req.Items); err != nil {
					return err
				}
			}
			if req.Status != nil {
				order.Status = *req.Status
			}
		}

		order.UpdatedBy = actor.ID.String()
		if err := tx.Orders().Save(ctx, order); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		if err := ledger.flush(ctx, &order.ID, "order updated", actor.ID.String()); err != nil {
			return err
		}
		changes = ledger.changes
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case order.Status == model.OrderCancelled:
		s.publishOrder(ctx, event.OrderCancelled, order, prev, actor, fmt.Sprintf("%s cancelled the order", actor.Name))
	case order.Status != prev:
		s.publishOrder(ctx, event.OrderStatusChanged, order, prev, actor,
			fmt.Sprintf("%s moved the order from %s to %s", actor.Name, prev, order.Status))
	default:
		s.publishOrder(ctx, event.OrderUpdated, order, prev, actor, fmt.Sprintf("%s updated the order", actor.Name))
	}
	s.publishStock(ctx, changes, &id, actor)
	return order, nil
}

func (s *orderService) CancelOrder(ctx context.Context, id uuid.UUID, actor Actor) (*model.Order, error) {
	cancelled := model.OrderCancelled
	return s.UpdateOrder(ctx, id, UpdateOrderRequest{Status: &cancelled}, actor)
}

func (s *orderService) DeleteOrder(ctx context.Context, id uuid.UUID, actor Actor) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	var snapshot *model.Order
	var changes []stockChange
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound("order", id, err)
		}
		ledger := newStockLedger(tx)
		if order.Status.IsActive() {
			if err := releaseAll(ctx, tx, ledger, order); err != nil {
				return err
			}
			if err := ledger.flush(ctx, &order.ID, "order deleted", actor.ID.String()); err != nil {
				return err
			}
		}
		if err := tx.Orders().Delete(ctx, id, actor.ID.String()); err != nil {
			return notFound("order", id, err)
		}
		snapshot, changes = order, ledger.changes
		return nil
	})
	if err != nil {
		return err
	}

	s.publishOrder(ctx, event.OrderDeleted, snapshot, snapshot.Status, actor, fmt.Sprintf("%s deleted the order", actor.Name))
	s.publishStock(ctx, changes, &id, actor)
	return nil
}

// GetOrderStatus serves pollers from the cache when possible.
func (s *orderService) GetOrderStatus(ctx context.Context, id uuid.UUID) (*model.OrderStatusView, error) {
	if s.cache != nil {
		if view, err := s.cache.GetStatus(ctx, id); err != nil {
			log.Printf("order: status cache read: %v", err)
		} else if view != nil {
			return view, nil
		}
	}

	order, err := s.store.Orders().FindByID(ctx, id)
	if err != nil {
		return nil, notFound("order", id, err)
	}
	view := order.StatusView()
	if s.cache != nil {
		if err := s.cache.FillStatus(ctx, view); err != nil {
			log.Printf("order: status cache write: %v", err)
		}
	}
	return &view, nil
}

// GetOrderMovements lists the reservations and releases journaled for the
// order, oldest first.
func (s *orderService) GetOrderMovements(ctx context.Context, id uuid.UUID) ([]model.StockMovement, error) {
	if _, err := s.GetOrder(ctx, id); err != nil {
		return nil, err
	}
	movements, err := s.store.Movements().FindByOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order movements: %w", err)
	}
	return movements, nil
}

// ---- helpers ----

func requireUser(ctx context.Context, tx repository.Store, id uuid.UUID, role model.Role, entity string) (*model.User, error) {
	u, err := tx.Users().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &InvalidReferenceError{Entity: entity, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", entity, err)
	}
	if u.Role != role {
		return nil, &InvalidReferenceError{Entity: entity, ID: id, Reason: fmt.Sprintf("is not a %s user", role)}
	}
	return u, nil
}

func lockProducts(ctx context.Context, tx repository.Store, ids map[uuid.UUID]bool) (map[uuid.UUID]*model.Product, error) {
	products, err := tx.Products().FindByIDsForUpdate(ctx, sortedIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	return products, nil
}

// checkStock reports every line asking for more than the product has plus
// what this order already holds of it.
func checkStock(items []OrderItemInput, products map[uuid.UUID]*model.Product, reserved map[uuid.UUID]int) error {
	var shortages []StockShortage
	for _, it := range items {
		p := products[it.ProductID]
		available := p.AvailableQuantity + reserved[it.ProductID]
		if it.RequestedQuantity > available {
			shortages = append(shortages, StockShortage{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: it.RequestedQuantity,
				Available: available,
				Deficit:   it.RequestedQuantity - available,
			})
		}
	}
	if len(shortages) > 0 {
		return &InsufficientStockError{Shortages: shortages}
	}
	return nil
}

func checkDuplicateLines(items []OrderItemInput) error {
	seen := make(map[uuid.UUID]bool, len(items))
	for _, it := range items {
		if seen[it.ProductID] {
			return validationError("product %s appears more than once", it.ProductID)
		}
		seen[it.ProductID] = true
	}
	return nil
}

func requestedByProduct(items []OrderItemInput) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		out[it.ProductID] += it.RequestedQuantity
	}
	return out
}

func buildItems(items []OrderItemInput) []model.OrderItem {
	out := make([]model.OrderItem, 0, len(items))
	for i, it := range items {
		out = append(out, model.OrderItem{
			ProductID:         it.ProductID,
			Position:          i,
			RequestedQuantity: it.RequestedQuantity,
		})
	}
	return out
}

func pickLeastBusy(ctx context.Context, tx repository.Store) (*model.User, error) {
	users, err := tx.Users().FindByRole(ctx, model.RoleWarehouse, true)
	if err != nil {
		return nil, fmt.Errorf("list warehouse users: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	load, err := tx.Orders().CountActiveByAssignee(ctx)
	if err != nil {
		return nil, fmt.Errorf("count assignee load: %w", err)
	}
	return SelectLeastBusy(users, load), nil
}

// replaceItems swaps the order's lines, moving only the difference between
// what it held and what it now asks for.
func replaceItems(ctx context.Context, tx repository.Store, ledger *stockLedger, order *model.Order, items []OrderItemInput) error {
	reserved := order.ReservedByProduct()
	wanted := requestedByProduct(items)

	touched := make(map[uuid.UUID]bool, len(reserved)+len(wanted))
	for id := range reserved {
		touched[id] = true
	}
	for id := range wanted {
		touched[id] = true
	}
	products, err := lockProducts(ctx, tx, touched)
	if err != nil {
		return err
	}
	for _, it := range items {
		if _, ok := products[it.ProductID]; !ok {
			return &InvalidReferenceError{Entity: "product", ID: it.ProductID}
		}
	}
	if err := checkStock(items, products, reserved); err != nil {
		return err
	}

	for _, id := range sortedIDs(touched) {
		if _, ok := products[id]; !ok {
			// dropped line for a product removed from the catalog
			continue
		}
		delta := reserved[id] - wanted[id]
		typ := model.MovementRelease
		if delta < 0 {
			typ = model.MovementReserve
		}
		if err := ledger.adjust(ctx, id, delta, typ); err != nil {
			return err
		}
	}
	order.Items = buildItems(items)
	return nil
}

// releaseAll hands every reserved unit back and zeroes the lines.
func releaseAll(ctx context.Context, tx repository.Store, ledger *stockLedger, order *model.Order) error {
	reserved := order.ReservedByProduct()
	ids := make(map[uuid.UUID]bool, len(reserved))
	for id, n := range reserved {
		if n > 0 {
			ids[id] = true
		}
	}
	products, err := lockProducts(ctx, tx, ids)
	if err != nil {
		return err
	}
	for _, id := range sortedIDs(ids) {
		if _, ok := products[id]; !ok {
			continue
		}
		if err := ledger.adjust(ctx, id, reserved[id], model.MovementRelease); err != nil {
			return err
		}
	}
	for i := range order.Items {
		order.Items[i].RequestedQuantity = 0
	}
	return nil
}

func cancelLocked(ctx context.Context, tx repository.Store, ledger *stockLedger, order *model.Order, assigneeID *uuid.UUID) error {
	if !model.CanTransition(order.Status, model.OrderCancelled) {
		return &TransitionError{From: order.Status, To: model.OrderCancelled}
	}
	if assigneeID != nil {
		if _, err := requireUser(ctx, tx, *assigneeID, model.RoleWarehouse, "assignee"); err != nil {
			return err
		}
		order.AssigneeID = assigneeID
	}
	if err := releaseAll(ctx, tx, ledger, order); err != nil {
		return err
	}
	order.Status = model.OrderCancelled
	return nil
}

func notFound(entity string, id uuid.UUID, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", entity, id, err)
}

// ---- events ----

func (s *orderService) publishOrder(ctx context.Context, typ event.Type, order *model.Order, prev model.OrderStatus, actor Actor, msg string) {
	if s.events == nil {
		return
	}
	p := event.OrderPayload{
		OrderID:     order.ID.String(),
		Status:      string(order.Status),
		SalesUserID: order.SalesUserID.String(),
		UpdatedAt:   order.UpdatedAt,
		User:        actor.ref(),
		Message:     msg,
	}
	if prev != "" && prev != order.Status {
		p.PreviousStatus = string(prev)
	}
	if order.AssigneeID != nil {
		p.AssigneeID = order.AssigneeID.String()
	}
	for _, it := range order.Items {
		p.Items = append(p.Items, event.ItemQty{ProductID: it.ProductID.String(), Qty: it.RequestedQuantity})
	}
	s.events.Emit(context.WithoutCancel(ctx), typ, p.OrderID, p)
}

func (s *orderService) publishStock(ctx context.Context, changes []stockChange, orderID *uuid.UUID, actor Actor) {
	publishStockChanges(ctx, s.events, changes, orderID, "", actor)
}

func publishStockChanges(ctx context.Context, events *event.Fanout, changes []stockChange, orderID *uuid.UUID, reason string, actor Actor) {
	if events == nil {
		return
	}
	for _, c := range changes {
		p := event.StockPayload{
			ProductID:         c.Product.ID.String(),
			ScanCode:          c.Product.ScanCode,
			Name:              c.Product.Name,
			Delta:             c.Delta,
			AvailableQuantity: c.Product.AvailableQuantity,
			Reason:            reason,
			User:              actor.ref(),
			Message:           fmt.Sprintf("%s: %+d units of '%s' (%s)", actor.Name, c.Delta, c.Product.Name, c.Type),
		}
		if orderID != nil {
			p.OrderID = orderID.String()
		}
		events.Emit(context.WithoutCancel(ctx), event.StockChanged, p.ProductID, p)
	}
}
