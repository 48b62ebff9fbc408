// handlers/errors.go
package handlers

import (
	"errors"
	"log"

	"mission-progression-system/engine"
	"mission-progression-system/services"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrMissionNotFound),
		errors.Is(err, services.ErrProfileNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, engine.ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrUnknownEventType),
		errors.Is(err, services.ErrInvalidSeed):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// respondError writes err as a JSON error body. Storage failures keep
// their cause out of the response and in the log.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ [HTTP] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{
			"error": "internal error",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
