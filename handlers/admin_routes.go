// handlers/admin_routes.go
package handlers

import (
	"mission-progression-system/middleware"
	"mission-progression-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, catalogService *services.CatalogService, reconcileService *services.ReconcileService) {
	admin := app.Group("/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	admin.Post("/missions/reseed", func(c *fiber.Ctx) error {
		n, err := catalogService.Reseed(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":  "catalog reseeded",
			"missions": n,
		})
	})

	admin.Get("/reconcile", func(c *fiber.Ctx) error {
		report, err := reconcileService.Run(c.UserContext(), c.QueryBool("upload", false))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(report)
	})
}
