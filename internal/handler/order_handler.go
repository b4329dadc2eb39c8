package handler

import (
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"
	"go-fulfillment-ws/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(s service.OrderService) *OrderHandler {
	return &OrderHandler{service: s}
}

type createOrderBody struct {
	SalesUserID *uuid.UUID               `json:"sales_user_id"`
	AssigneeID  *uuid.UUID               `json:"assignee_id"`
	Items       []service.OrderItemInput `json:"items"`
}

type statusBody struct {
	Status model.OrderStatus `json:"status"`
}

// CreateOrder submits a new order.
// POST /api/v1/orders
//
// Sales users always order on their own behalf; admins name the sales user.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var body createOrderBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	actor := actorFrom(c)
	req := service.CreateOrderRequest{
		AssigneeID:     body.AssigneeID,
		Items:          body.Items,
		IdempotencyKey: c.Get("Idempotency-Key"),
	}
	switch {
	case roleFrom(c) == model.RoleSales:
		req.SalesUserID = actor.ID
	case body.SalesUserID != nil:
		req.SalesUserID = *body.SalesUserID
	default:
		return c.Status(400).JSON(fiber.Map{"error": "sales_user_id is required"})
	}

	order, err := h.service.CreateOrder(c.UserContext(), req, actor)
	if err != nil {
		return err
	}
	return c.Status(201).JSON(fiber.Map{"message": "Order created", "data": order})
}

// GetOrders lists orders, newest first.
// GET /api/v1/orders?status=&assignee_id=&sales_user_id=&mine=true
func (h *OrderHandler) GetOrders(c *fiber.Ctx) error {
	filter := repository.OrderFilter{Status: model.OrderStatus(c.Query("status"))}

	var err error
	if filter.AssigneeID, err = queryUUID(c, "assignee_id"); err != nil {
		return err
	}
	if filter.SalesUserID, err = queryUUID(c, "sales_user_id"); err != nil {
		return err
	}

	actor := actorFrom(c)
	switch roleFrom(c) {
	case model.RoleSales:
		filter.SalesUserID = &actor.ID
	case model.RoleWarehouse:
		if c.QueryBool("mine") {
			filter.AssigneeID = &actor.ID
		}
	}

	orders, err := h.service.ListOrders(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

// GetOrder returns one order with its lines and people resolved.
// GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "order")
	if err != nil {
		return err
	}
	order, err := h.service.GetOrder(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !canSee(c, order) {
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	}
	return c.JSON(order)
}

// GetOrderStatus is the cheap polling endpoint.
// GET /api/v1/orders/:id/status
func (h *OrderHandler) GetOrderStatus(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "order")
	if err != nil {
		return err
	}
	if err := h.requireVisible(c, id); err != nil {
		return err
	}
	view, err := h.service.GetOrderStatus(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// GetOrderMovements returns the stock journal entries the order caused.
// GET /api/v1/orders/:id/movements
func (h *OrderHandler) GetOrderMovements(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "order")
	if err != nil {
		return err
	}
	if err := h.requireVisible(c, id); err != nil {
		return err
	}
	movements, err := h.service.GetOrderMovements(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(movements)
}

// UpdateOrder applies a partial update.
// PUT /api/v1/orders/:id
func (h *OrderHandler) UpdateOrder(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "order")
	if err != nil {
		return err
	}
	var req service.UpdateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	order, err := h.service.UpdateOrder(c.UserContext(), id, req, actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Order updated", "data": order})
}

// MoveOrder changes only the status, as the warehouse board does.
// PATCH /api/v1/orders/:id/status
func (h *OrderHandler) MoveOrder(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "order")
	if err != nil {
		return err
	}
	var body statusBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if body.Status == "" {
		return c.Status(400).JSON(fiber.Map{"error": "status is required"})
	}

	order, err := h.service.UpdateOrder(c.UserContext(), id, service.UpdateOrderRequest{Status: &body.Status}, actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Order moved", "data": order})
}

// CancelOrder releases the order's stock.
// POST /api/v1/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "order")
	if err != nil {
		return err
	}
	if err := h.requireVisible(c, id); err != nil {
		return err
	}

	order, err := h.service.CancelOrder(c.UserContext(), id, actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Order cancelled", "data": order})
}

// DeleteOrder removes an order, returning any stock it still holds.
// DELETE /api/v1/orders/:id
func (h *OrderHandler) DeleteOrder(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "order")
	if err != nil {
		return err
	}
	if err := h.service.DeleteOrder(c.UserContext(), id, actorFrom(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Order deleted"})
}

// requireVisible answers 404 when a sales user asks about another
// user's order.
func (h *OrderHandler) requireVisible(c *fiber.Ctx, id uuid.UUID) error {
	if roleFrom(c) != model.RoleSales {
		return nil
	}
	order, err := h.service.GetOrder(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !canSee(c, order) {
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	}
	return nil
}

// canSee hides other people's orders from sales users.
func canSee(c *fiber.Ctx, order *model.Order) bool {
	if roleFrom(c) != model.RoleSales {
		return true
	}
	return order.SalesUserID == actorFrom(c).ID
}
