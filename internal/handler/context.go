package handler

import (
	"go-fulfillment-ws/internal/middleware"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// actorFrom reads the authenticated user placed in Locals by RequireAuth.
func actorFrom(c *fiber.Ctx) service.Actor {
	a := service.Actor{Name: "Unknown"}
	if id, ok := c.Locals(middleware.LocalUserID).(string); ok {
		a.ID, _ = uuid.Parse(id)
	}
	if name, ok := c.Locals(middleware.LocalUserName).(string); ok {
		a.Name = name
	}
	if email, ok := c.Locals(middleware.LocalUserEmail).(string); ok {
		a.Email = email
	}
	return a
}

func roleFrom(c *fiber.Ctx) model.Role {
	role, _ := c.Locals(middleware.LocalUserRole).(string)
	return model.Role(role)
}

// userIDOr returns the caller's id as an audit string.
func userIDOr(c *fiber.Ctx, fallback string) string {
	if id, ok := c.Locals(middleware.LocalUserID).(string); ok && id != "" {
		return id
	}
	return fallback
}

func paramUUID(c *fiber.Ctx, name, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+label+" ID")
	}
	return id, nil
}

func queryUUID(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return &id, nil
}
