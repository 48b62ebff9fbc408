// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GatewayAuthMiddleware accepts only requests carrying the gateway's
// bearer token.
func GatewayAuthMiddleware(expectedToken string) fiber.Handler {
	if expectedToken == "" {
		log.Fatal("❌ MISSION_SERVICE_TOKEN is not set — service cannot authenticate Gateway")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			log.Printf("🚫 [GATEWAY_AUTH] Missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}

		// The gateway may send the raw token without a scheme.
		token := strings.TrimPrefix(authHeader, "Bearer ")

		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.Printf("❌ [GATEWAY_AUTH] Invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}

		return c.Next()
	}
}
