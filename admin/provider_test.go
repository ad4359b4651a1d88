package admin_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karloscodes/fiberadmin/models"
)

func TestLoginProvider_RedirectsToInitWithoutAdmins(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.get(t, "/admin/login")
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/init", resp.Header.Get(fiber.HeaderLocation))

	resp, body := h.get(t, "/admin/init")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Create the first admin")
}

func TestLoginProvider_InitCreatesFirstAdmin(t *testing.T) {
	h := newHarness(t)

	resp, body := h.post(t, "/admin/init", url.Values{
		"username": {"root"}, "password": {"a"}, "confirm_password": {"b"},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Passwords do not match")

	resp, _ = h.post(t, "/admin/init", url.Values{
		"username": {"root"}, "password": {"secret"}, "confirm_password": {"secret"},
	})
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/login", resp.Header.Get(fiber.HeaderLocation))

	var admin models.Admin
	require.NoError(t, h.db.Where("username = ?", "root").Take(&admin).Error)
	assert.True(t, admin.CheckPassword("secret"))

	// Once an admin exists the init page is closed.
	resp, _ = h.post(t, "/admin/init", url.Values{
		"username": {"other"}, "password": {"x"}, "confirm_password": {"x"},
	})
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	var count int64
	h.db.Model(&models.Admin{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestLoginProvider_Login(t *testing.T) {
	h := newHarness(t)
	h.createAdmin(t, "root", "secret")

	resp, body := h.get(t, "/admin/login")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "https://example.com/logo.svg")

	resp, body = h.post(t, "/admin/login", url.Values{"username": {"root"}, "password": {"wrong"}})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid username or password")

	cookie := h.login(t, "root", "secret")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/admin", cookie.Path)

	token, _, _ := strings.Cut(cookie.Value, ".")
	assert.True(t, h.store.Exist(context.Background(), "session:"+token))

	resp, body = h.get(t, "/admin", cookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Dashboard")
	assert.Contains(t, body, "root")

	var admin models.Admin
	require.NoError(t, h.db.Where("username = ?", "root").Take(&admin).Error)
	assert.NotNil(t, admin.LastLogin)
}

func TestLoginProvider_TamperedCookieIsRejected(t *testing.T) {
	h := newHarness(t)
	h.createAdmin(t, "root", "secret")
	cookie := h.login(t, "root", "secret")

	forged := &http.Cookie{Name: cookie.Name, Value: cookie.Value + "x"}
	resp, _ := h.get(t, "/admin", forged)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/login", resp.Header.Get(fiber.HeaderLocation))
}

func TestLoginProvider_Logout(t *testing.T) {
	h := newHarness(t)
	h.createAdmin(t, "root", "secret")
	cookie := h.login(t, "root", "secret")

	resp, _ := h.get(t, "/admin/logout", cookie)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/login", resp.Header.Get(fiber.HeaderLocation))

	// The old cookie no longer maps to a session.
	resp, _ = h.get(t, "/admin", cookie)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
}

func TestLoginProvider_ChangePassword(t *testing.T) {
	h := newHarness(t)
	h.createAdmin(t, "root", "secret")
	cookie := h.login(t, "root", "secret")

	resp, body := h.get(t, "/admin/password", cookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Change password")

	resp, body = h.post(t, "/admin/password", url.Values{
		"old_password": {"nope"}, "new_password": {"n"}, "re_new_password": {"n"},
	}, cookie)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Current password is incorrect")

	resp, _ = h.post(t, "/admin/password", url.Values{
		"old_password": {"secret"}, "new_password": {"changed"}, "re_new_password": {"changed"},
	}, cookie)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	resp, _ = h.get(t, "/admin", cookie)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode, "session ends after a password change")

	h.login(t, "root", "changed")
}

func TestLoginProvider_SuccessfulLoginsAreNotThrottled(t *testing.T) {
	h := newHarness(t)
	h.createAdmin(t, "root", "secret")

	for i := 0; i < 7; i++ {
		resp, _ := h.post(t, "/admin/login", url.Values{"username": {"root"}, "password": {"secret"}})
		require.Equal(t, fiber.StatusSeeOther, resp.StatusCode, "login %d", i+1)
	}
}

func TestLoginProvider_ThrottlesFailedLogins(t *testing.T) {
	h := newHarness(t)
	h.createAdmin(t, "root", "secret")

	form := url.Values{"username": {"root"}, "password": {"wrong"}}
	for i := 0; i < 5; i++ {
		resp, _ := h.post(t, "/admin/login", form)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := h.post(t, "/admin/login", form)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "Too many login attempts")
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	resp, _ = h.post(t, "/admin/login", url.Values{"username": {"editor"}, "password": {"wrong"}})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "other accounts are counted separately")
}
