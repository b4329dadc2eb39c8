package handler

import (
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateUser handles user creation
// POST /api/v1/users
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req service.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	user, err := h.userService.CreateUser(c.UserContext(), &req, userIDOr(c, "system"))
	if err != nil {
		return err
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "User created successfully",
		"data":    user.ToResponse(),
	})
}

// GetUsers returns all users, optionally only those holding ?role=
// GET /api/v1/users
func (h *UserHandler) GetUsers(c *fiber.Ctx) error {
	role := model.Role(c.Query("role"))
	if role != "" && !role.Valid() {
		return c.Status(400).JSON(fiber.Map{"error": "Unknown role"})
	}

	users, err := h.userService.GetAllUsers(c.UserContext(), role)
	if err != nil {
		return err
	}
	return c.JSON(users)
}

// GetUser returns a single user by ID
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	userID, err := paramUUID(c, "id", "user")
	if err != nil {
		return err
	}

	user, err := h.userService.GetUserByID(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(user)
}

// UpdateUser handles user update
// PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	userID, err := paramUUID(c, "id", "user")
	if err != nil {
		return err
	}

	var req service.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	user, err := h.userService.UpdateUser(c.UserContext(), userID, &req, userIDOr(c, "system"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "User updated successfully",
		"data":    user.ToResponse(),
	})
}

// DeleteUser handles user deletion
// DELETE /api/v1/users/:id
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	userID, err := paramUUID(c, "id", "user")
	if err != nil {
		return err
	}
	if userID == actorFrom(c).ID {
		return c.Status(400).JSON(fiber.Map{"error": "You cannot delete your own account"})
	}

	if err := h.userService.DeleteUser(c.UserContext(), userID); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}
