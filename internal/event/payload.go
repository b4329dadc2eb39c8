package event

import "time"

// UserRef identifies who triggered an event.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderPayload struct {
	OrderID        string    `json:"order_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	SalesUserID    string    `json:"sales_user_id"`
	AssigneeID     string    `json:"assignee_id,omitempty"`
	Items          []ItemQty `json:"items"`
	UpdatedAt      time.Time `json:"updated_at"`
	User           UserRef   `json:"user"`
	Message        string    `json:"message"`
}

type StockPayload struct {
	ProductID         string  `json:"product_id"`
	ScanCode          string  `json:"scan_code"`
	Name              string  `json:"name"`
	Delta             int     `json:"delta"`
	AvailableQuantity int     `json:"available_quantity"`
	OrderID           string  `json:"order_id,omitempty"`
	Reason            string  `json:"reason,omitempty"`
	User              UserRef `json:"user"`
	Message           string  `json:"message"`
}

type PresencePayload struct {
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
