package admin

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// ServerErrorHandler renders errors/500.html. The error detail is not shown.
func ServerErrorHandler(c *fiber.Ctx, err error) error {
	return renderErrorPage(c, fiber.StatusInternalServerError, "Something went wrong on our side.")
}

// NotFoundHandler renders errors/404.html.
func NotFoundHandler(c *fiber.Ctx, err error) error {
	return renderErrorPage(c, fiber.StatusNotFound, "The page you are looking for does not exist.")
}

// ForbiddenHandler renders errors/403.html.
func ForbiddenHandler(c *fiber.Ctx, err error) error {
	return renderErrorPage(c, fiber.StatusForbidden, errorMessage(err, "You are not allowed to access this page."))
}

// UnauthorizedHandler sends the browser to the login page.
func UnauthorizedHandler(c *fiber.Ctx, err error) error {
	login := "/admin/login"
	if m := moduleFrom(c); m != nil {
		login = m.URL("/login")
	}
	return c.Redirect(login, fiber.StatusSeeOther)
}

// defaultExceptionHandler serves status codes without a registered handler.
func defaultExceptionHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	m := moduleFrom(c)
	name := fmt.Sprintf("errors/%d", code)
	if m != nil && m.hasView(name) {
		return renderErrorPage(c, code, errorMessage(err, ""))
	}
	return plainError(c, code, err)
}

func renderErrorPage(c *fiber.Ctx, code int, message string) error {
	m := moduleFrom(c)
	if m == nil {
		return c.Status(code).SendString(message)
	}
	return m.Render(c, code, fmt.Sprintf("errors/%d", code), fiber.Map{
		"Status":  code,
		"Message": message,
	})
}

func plainError(c *fiber.Ctx, code int, err error) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(code).SendString(errorMessage(err, utils.StatusMessage(code)))
}

func errorMessage(err error, fallback string) string {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return fallback
}
