// middleware/service_token.go
package middleware

import (
	"crypto/subtle"
	"log"

	"github.com/gofiber/fiber/v2"
)

// ServiceTokenMiddleware admits only sibling services presenting
// X-Service-Token. Gateway-forwarded user traffic does not carry it.
func ServiceTokenMiddleware(expectedToken string) fiber.Handler {
	if expectedToken == "" {
		log.Fatal("❌ EVENTS_SERVICE_TOKEN is not set: service-to-service routes cannot authenticate callers")
	}

	return func(c *fiber.Ctx) error {
		token := c.Get("X-Service-Token")
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.Printf("🚫 [SERVICE_AUTH] Rejected %s %s: missing or invalid X-Service-Token", c.Method(), c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "service token required",
			})
		}
		return c.Next()
	}
}
