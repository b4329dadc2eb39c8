package handler

import (
	"go-fulfillment-ws/internal/model"

	"github.com/gofiber/fiber/v2"
)

// RoleHandler serves the fixed role and privilege catalogue.
type RoleHandler struct{}

func NewRoleHandler() *RoleHandler {
	return &RoleHandler{}
}

// GetRoles returns all available roles
// GET /api/v1/roles
func (h *RoleHandler) GetRoles(c *fiber.Ctx) error {
	return c.JSON(model.DefaultRoles)
}

// GetPrivileges returns every privilege code
// GET /api/v1/privileges
func (h *RoleHandler) GetPrivileges(c *fiber.Ctx) error {
	return c.JSON(model.DefaultPrivileges)
}
