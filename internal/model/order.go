package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// ActiveOrderStatuses are the statuses that still hold stock reservations
// and count towards a warehouse worker's load.
var ActiveOrderStatuses = []OrderStatus{OrderPending, OrderInProgress}

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:    {OrderInProgress: true, OrderCancelled: true},
	OrderInProgress: {OrderCompleted: true, OrderCancelled: true},
	OrderCompleted:  {},
	OrderCancelled:  {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

func (s OrderStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

func (s OrderStatus) IsActive() bool {
	return s == OrderPending || s == OrderInProgress
}

// Order is a sales request for product quantities, tracked through the
// status pipeline and fulfilled by a warehouse assignee.
type Order struct {
	BaseModel
	SalesUserID uuid.UUID   `gorm:"type:uuid;not null;index" json:"sales_user_id"`
	SalesUser   *User       `gorm:"foreignKey:SalesUserID" json:"sales_user,omitempty"`
	AssigneeID  *uuid.UUID  `gorm:"type:uuid;index" json:"assignee_id"`
	Assignee    *User       `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Status      OrderStatus `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	Items       []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`

	// IdempotencyKey is "<sales user id>:<client key>" for creates sent
	// with an Idempotency-Key header.
	IdempotencyKey *string `gorm:"type:varchar(200);uniqueIndex:idx_orders_idempotency_key,where:deleted_at IS NULL" json:"-"`
}

// OrderItem is one requested product line. RequestedQuantity is the amount
// currently reserved for the order; it is zeroed when the order is cancelled.
type OrderItem struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	OrderID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_order_items_order_product" json:"order_id"`
	ProductID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_order_items_order_product" json:"product_id"`
	Product           *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Position          int       `gorm:"not null" json:"position"`
	RequestedQuantity int       `gorm:"not null" json:"requested_quantity"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}

// ReservedByProduct sums the quantity this order holds per product.
func (o *Order) ReservedByProduct() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(o.Items))
	for _, it := range o.Items {
		out[it.ProductID] += it.RequestedQuantity
	}
	return out
}

// OrderStatusView is the lightweight shape served to pollers.
type OrderStatusView struct {
	OrderID    uuid.UUID   `json:"order_id"`
	Status     OrderStatus `json:"status"`
	AssigneeID *uuid.UUID  `json:"assignee_id,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (o *Order) StatusView() OrderStatusView {
	return OrderStatusView{
		OrderID:    o.ID,
		Status:     o.Status,
		AssigneeID: o.AssigneeID,
		UpdatedAt:  o.UpdatedAt,
	}
}
