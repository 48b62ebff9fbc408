// handlers/mission_routes.go
package handlers

import (
	"mission-progression-system/middleware"
	"mission-progression-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMissionRoutes(app *fiber.App, missionService *services.MissionService) {
	// 🔐 Every mission route acts on the caller's own profile.
	secured := app.Group("/missions", middleware.UserContextMiddleware())

	secured.Get("/", func(c *fiber.Ctx) error {
		views, err := missionService.List(c.UserContext(), middleware.UserID(c), preferredLocales(c)...)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(views)
	})

	secured.Post("/:code/start", func(c *fiber.Ctx) error {
		view, err := missionService.Start(c.UserContext(), middleware.UserID(c), c.Params("code"), preferredLocales(c)...)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(view)
	})

	secured.Post("/:code/claim", func(c *fiber.Ctx) error {
		result, err := missionService.Claim(c.UserContext(), middleware.UserID(c), c.Params("code"), preferredLocales(c)...)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(result)
	})
}
