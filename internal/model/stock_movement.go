package model

import "github.com/google/uuid"

type MovementType string

const (
	MovementReserve MovementType = "RESERVE" // stock set aside for an order
	MovementRelease MovementType = "RELEASE" // reservation handed back
	MovementAdjust  MovementType = "ADJUST"  // direct admin edit
)

// StockMovement journals every change of a product's available quantity.
type StockMovement struct {
	BaseModel
	ProductID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"product_id"`
	Product      *Product     `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	OrderID      *uuid.UUID   `gorm:"type:uuid;index" json:"order_id,omitempty"`
	Type         MovementType `gorm:"type:varchar(10);not null" json:"type"`
	Quantity     int          `gorm:"not null" json:"quantity"` // signed delta
	BalanceAfter int          `gorm:"not null" json:"balance_after"`
	Note         string       `json:"note"`
}
