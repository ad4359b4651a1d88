package fiberadmin

import (
	"errors"
	"fmt"
	"html"

	"github.com/gofiber/fiber/v2"
)

// DefaultErrorHandler serves errors outside the admin module. It returns
// JSON for API clients and a small HTML page otherwise. Error details are
// only shown in development.
func DefaultErrorHandler(logger Logger, isDev bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		args := []any{
			"error", err,
			"path", c.Path(),
			"method", c.Method(),
			"status", code,
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", args...)
		} else {
			logger.Debug("request rejected", args...)
		}

		message := ""
		if isDev || fe != nil {
			message = err.Error()
		}

		if c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON {
			return c.Status(code).JSON(fiber.Map{
				"error":   ErrorCodeName(code),
				"message": message,
			})
		}

		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Status(code).SendString(errorHTML(code, ErrorCodeName(code), message))
	}
}

// ErrorCodeName returns a human-readable name for common HTTP status codes.
func ErrorCodeName(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "Bad Request"
	case fiber.StatusUnauthorized:
		return "Unauthorized"
	case fiber.StatusForbidden:
		return "Forbidden"
	case fiber.StatusNotFound:
		return "Not Found"
	case fiber.StatusMethodNotAllowed:
		return "Method Not Allowed"
	case fiber.StatusTooManyRequests:
		return "Too Many Requests"
	case fiber.StatusInternalServerError:
		return "Internal Server Error"
	case fiber.StatusBadGateway:
		return "Bad Gateway"
	case fiber.StatusServiceUnavailable:
		return "Service Unavailable"
	default:
		return "Error"
	}
}

// errorHTML generates a simple, styled HTML error page.
func errorHTML(code int, title, message string) string {
	details := ""
	if message != "" {
		details = fmt.Sprintf(`<p style="color:#666;font-size:14px;margin-top:20px;font-family:monospace;background:#f5f5f5;padding:10px;border-radius:4px;">%s</p>`, html.EscapeString(message))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%d - %s</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: #f8f9fa;
            color: #333;
        }
        .container { text-align: center; padding: 40px; max-width: 500px; }
        h1 { font-size: 72px; margin: 0; color: #dc3545; }
        h2 { font-size: 24px; margin: 10px 0 20px; color: #666; }
        a { color: #007bff; text-decoration: none; }
        a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%d</h1>
        <h2>%s</h2>
        <p><a href="/admin">&larr; Back to the admin</a></p>
        %s
    </div>
</body>
</html>`, code, title, code, title, details)
}
