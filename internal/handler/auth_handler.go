package handler

import (
	"fmt"

	"go-fulfillment-ws/internal/service"
	"go-fulfillment-ws/pkg/validator"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type ValidateTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// bind parses and validates a JSON body.
func bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON")
	}
	if err := validator.Validate(out); err != nil {
		return fmt.Errorf("%w: %v", service.ErrValidation, err)
	}
	return nil
}

// Login handles user authentication
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	response, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(response)
}

// ResetPassword handles password change
// POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.authService.ResetPassword(c.UserContext(), req.Email, req.OldPassword, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

// Heartbeat keeps the session alive and marks the user online.
// POST /api/v1/auth/heartbeat
func (h *AuthHandler) Heartbeat(c *fiber.Ctx) error {
	actor := actorFrom(c)
	if err := h.authService.Heartbeat(c.UserContext(), actor.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Heartbeat received", "status": "online"})
}

// ValidateToken handles JWT token validation
// POST /api/v1/auth/validate-token
func (h *AuthHandler) ValidateToken(c *fiber.Ctx) error {
	var req ValidateTokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	response, err := h.authService.ValidateToken(c.UserContext(), req.Token)
	if err != nil {
		return err
	}

	return c.JSON(response)
}
