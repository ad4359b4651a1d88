package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
)

// Helmet sets security headers. Cross-origin embedding stays allowed so
// admin pages can load logos and favicons from other hosts.
func Helmet() fiber.Handler {
	return helmet.New(helmet.Config{
		ReferrerPolicy:            "same-origin",
		CrossOriginEmbedderPolicy: "unsafe-none",
		CrossOriginResourcePolicy: "cross-origin",
		CrossOriginOpenerPolicy:   "same-origin-allow-popups",
	})
}

// HelmetWithConfig creates a Helmet middleware with custom configuration.
func HelmetWithConfig(config helmet.Config) fiber.Handler {
	return helmet.New(config)
}
