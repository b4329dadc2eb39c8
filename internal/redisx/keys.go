package redisx

import "time"

const (
	// idem:order:create:{idempotency key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s"

	// order_status:{order_id} -> model.OrderStatusView JSON
	KeyOrderStatus = "order_status:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
)
