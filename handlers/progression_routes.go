// handlers/progression_routes.go
package handlers

import (
	"mission-progression-system/middleware"
	"mission-progression-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(app *fiber.App, progressionService *services.ProgressionService, stream *services.LedgerStreamService, validator middleware.TokenValidator) {
	// EventSource cannot send gateway identity headers; it authenticates
	// with query parameters instead.
	app.Get("/user/rewards/stream", middleware.SSEAuthMiddleware(validator), stream.StreamLedgerSSE)

	secured := app.Group("/user/progress", middleware.UserContextMiddleware())

	secured.Get("/", func(c *fiber.Ctx) error {
		view, err := progressionService.GetProgress(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(view)
	})

	secured.Get("/ledger", func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		size := c.QueryInt("size", 20)
		ledger, err := progressionService.GetLedger(c.UserContext(), middleware.UserID(c), page, size)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(ledger)
	})

	secured.Get("/badges", func(c *fiber.Ctx) error {
		badges, err := progressionService.GetBadges(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"badges": badges,
			"count":  len(badges),
		})
	})
}
