package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger emits structured request logs using the provided logger.
// Static assets are logged at debug level to reduce noise.
func RequestLogger(logger Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		stop := time.Since(start)

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		path := c.Path()
		args := []any{
			"method", c.Method(),
			"path", path,
			"status", status,
			"duration", stop,
			"ip", c.IP(),
			"request_id", c.GetRespHeader(RequestIDHeader),
		}

		switch {
		case strings.HasPrefix(path, "/static/"):
			logger.Debug("http request", args...)
		case status >= fiber.StatusInternalServerError:
			logger.Error("http request", args...)
		default:
			logger.Info("http request", args...)
		}

		return err
	}
}
