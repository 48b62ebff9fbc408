// middleware/sse_auth.go
package middleware

import (
	"context"
	"log"
	"strings"

	"mission-progression-system/services"

	"github.com/gofiber/fiber/v2"
)

// TokenValidator checks an end-user access token for a device.
type TokenValidator interface {
	ValidateToken(ctx context.Context, accessToken, deviceID string) (*services.ValidateResponse, error)
}

// SSEAuthMiddleware authenticates EventSource connections, which cannot
// send headers, from the `token` and `device_id` query parameters.
//
// Usage:
//
//	app.Get("/user/rewards/stream", middleware.SSEAuthMiddleware(authClient), stream.StreamLedgerSSE)
func SSEAuthMiddleware(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		deviceID := strings.TrimSpace(c.Query("device_id"))

		if accessToken == "" || deviceID == "" {
			log.Printf("[SSEAuth] ❌ Missing query params on %s (token=%t, device_id=%t)",
				c.Path(), accessToken != "", deviceID != "")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or device_id in query",
			})
		}

		resp, err := validator.ValidateToken(c.UserContext(), accessToken, deviceID)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed for device %s: %v", deviceID, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals(LocalUserID, resp.UserID)
		c.Locals(LocalDeviceID, resp.DeviceID)
		c.Locals(LocalUserRoles, resp.Roles)

		log.Printf("[SSEAuth] ✅ Authenticated user %s (device %s)", resp.UserID, resp.DeviceID)
		return c.Next()
	}
}
