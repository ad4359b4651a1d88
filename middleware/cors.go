package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

var allMethods = strings.Join([]string{
	fiber.MethodGet,
	fiber.MethodPost,
	fiber.MethodHead,
	fiber.MethodPut,
	fiber.MethodDelete,
	fiber.MethodPatch,
	fiber.MethodOptions,
}, ",")

// CORSAllowAll permits every origin, method and header, with credentials.
// The request origin is echoed back because browsers refuse "*" together
// with credentials. Request headers are reflected in preflight replies.
func CORSAllowAll() fiber.Handler {
	return cors.New(cors.Config{
		AllowOriginsFunc: func(string) bool { return true },
		AllowMethods:     allMethods,
		AllowHeaders:     "",
		AllowCredentials: true,
		ExposeHeaders:    "*",
	})
}
