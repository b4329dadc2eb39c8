package handler

import (
	"errors"
	"log"

	"go-fulfillment-ws/internal/repository"
	"go-fulfillment-ws/internal/service"
	"go-fulfillment-ws/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the app-wide fiber error handler. Handlers return service
// errors as-is and this maps them to a status code and a JSON body.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	body := fiber.Map{"error": err.Error(), "code": code}

	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		body["shortages"] = stockErr.Shortages
	}
	var transErr *service.TransitionError
	if errors.As(err, &transErr) {
		body["from"] = transErr.From
		body["to"] = transErr.To
	}

	if status == fiber.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Method(), c.Path(), err)
		body["error"] = "Internal Server Error"
	}
	return c.Status(status).JSON(body)
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, "http_error"
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrWrongPassword):
		return fiber.StatusBadRequest, "validation"
	case errors.Is(err, service.ErrInvalidReference):
		return fiber.StatusUnprocessableEntity, "invalid_reference"
	case errors.Is(err, service.ErrInsufficientStock):
		return fiber.StatusConflict, "insufficient_stock"
	case errors.Is(err, service.ErrInvalidTransition):
		return fiber.StatusConflict, "invalid_transition"
	case errors.Is(err, service.ErrConcurrencyConflict), errors.Is(err, repository.ErrQuantityConflict):
		return fiber.StatusConflict, "concurrency_conflict"
	case errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrEmailExists),
		errors.Is(err, repository.ErrDuplicate):
		return fiber.StatusConflict, "already_exists"
	case errors.Is(err, service.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUserInactive),
		errors.Is(err, service.ErrSessionTimeout),
		errors.Is(err, service.ErrSessionReplaced),
		errors.Is(err, jwt.ErrInvalidToken),
		errors.Is(err, jwt.ErrMissingToken):
		return fiber.StatusUnauthorized, "unauthorized"
	}
	return fiber.StatusInternalServerError, "internal"
}
