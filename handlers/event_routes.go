// handlers/event_routes.go
package handlers

import (
	"fmt"

	"mission-progression-system/middleware"
	"mission-progression-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupEventRoutes exposes ingestion to sibling services. The profile is
// named in the body, so callers must hold the service token rather than a
// user context.
func SetupEventRoutes(app *fiber.App, ingestService *services.IngestService, serviceToken string) {
	app.Post("/events", middleware.ServiceTokenMiddleware(serviceToken), func(c *fiber.Ctx) error {
		var evt services.DomainEvent
		if err := c.BodyParser(&evt); err != nil {
			return respondError(c, fmt.Errorf("%w: %v", services.ErrValidation, err))
		}
		result, err := ingestService.Ingest(c.UserContext(), evt)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(result)
	})
}
