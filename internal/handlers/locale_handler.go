package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/brandlover88/brandlover-backend/internal/i18n"
)

// GetLocale serves the localized string document for a language. Unknown
// languages fall back to English rather than 404ing, matching how the UI
// treats a missing document.
func GetLocale(c *fiber.Ctx) error {
	lang := c.Params("lang")
	return c.JSON(fiber.Map{
		"success": true,
		"data":    i18n.Doc(lang),
	})
}
