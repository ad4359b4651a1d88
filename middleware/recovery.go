package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
)

// Recover turns panics into errors handled by the app's error handler
// and logs the stack trace.
func Recover(logger Logger) fiber.Handler {
	return fiberrecover.New(fiberrecover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			logger.Error("panic recovered",
				"error", fmt.Sprint(e),
				"method", c.Method(),
				"path", c.Path(),
				"request_id", c.GetRespHeader(RequestIDHeader),
				"stack", string(debug.Stack()),
			)
		},
	})
}
