// handlers/locale.go
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"
)

// preferredLocales returns the caller's languages, most preferred first.
// An explicit ?locale= wins over Accept-Language. Malformed values are
// ignored and the catalog default applies.
func preferredLocales(c *fiber.Ctx) []language.Tag {
	var tags []language.Tag
	if raw := c.Query("locale"); raw != "" {
		if tag, err := language.Parse(raw); err == nil {
			tags = append(tags, tag)
		}
	}
	if header := c.Get(fiber.HeaderAcceptLanguage); header != "" {
		if accepted, _, err := language.ParseAcceptLanguage(header); err == nil {
			tags = append(tags, accepted...)
		}
	}
	return tags
}
