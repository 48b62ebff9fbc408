// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Locals keys shared by the middleware and handlers.
const (
	LocalUserID    = "user_id"
	LocalUserRoles = "user_roles"
	LocalDeviceID  = "device_id"
)

// UserContextMiddleware reads the identity the gateway forwards in
// X-User-ID and X-User-Roles. Requests without a user are rejected.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID required but missing on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		c.Locals(LocalUserID, userID)
		c.Locals(LocalUserRoles, splitRoles(c.Get("X-User-Roles")))
		return c.Next()
	}
}

// RequireRole rejects callers that lack role. It must run after a
// middleware that sets LocalUserRoles.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, r := range Roles(c) {
			if r == role {
				return c.Next()
			}
		}
		log.Printf("🚫 [USER_CTX] %s lacks role %q for %s", UserID(c), role, c.Path())
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient role",
		})
	}
}

// UserID returns the authenticated profile id, or "" when none is set.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

func Roles(c *fiber.Ctx) []string {
	roles, _ := c.Locals(LocalUserRoles).([]string)
	return roles
}

func splitRoles(header string) []string {
	var roles []string
	for _, r := range strings.Split(header, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
