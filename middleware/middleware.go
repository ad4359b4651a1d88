// Package middleware holds the Fiber middleware shared by the top-level
// application and the admin module.
package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Logger is the logging surface the middleware needs. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// RequestIDHeader carries the per-request id.
const RequestIDHeader = fiber.HeaderXRequestID

// RequestID assigns an id to every request, reusing one sent by the client.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     RequestIDHeader,
		ContextKey: "requestid",
	})
}
