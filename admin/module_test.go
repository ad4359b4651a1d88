package admin_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/karloscodes/fiberadmin/admin"
	"github.com/karloscodes/fiberadmin/cache"
	"github.com/karloscodes/fiberadmin/models"
	"github.com/karloscodes/fiberadmin/testsupport"
)

type harness struct {
	app    *fiber.App
	module *admin.Module
	db     *gorm.DB
	store  cache.Store
}

func discardLogger() *slog.Logger {
	return testsupport.NewTestLogger()
}

func newHarness(t *testing.T, mutate ...func(*admin.Config)) *harness {
	t.Helper()
	logger := discardLogger()

	db := testsupport.SetupTestDB(t)

	store := cache.NewMemoryStore(cache.WithCleanupInterval(0))
	t.Cleanup(func() { _ = store.Close() })

	module := admin.New(admin.Options{Logger: logger})
	module.AddExceptionHandler(fiber.StatusInternalServerError, admin.ServerErrorHandler)
	module.AddExceptionHandler(fiber.StatusNotFound, admin.NotFoundHandler)
	module.AddExceptionHandler(fiber.StatusForbidden, admin.ForbiddenHandler)
	module.AddExceptionHandler(fiber.StatusUnauthorized, admin.UnauthorizedHandler)

	cfg := admin.Config{
		DB:    db,
		Cache: store,
		Providers: []admin.Provider{
			admin.NewLoginProvider(admin.LoginConfig{Secret: "test-secret", LoginLogoURL: "https://example.com/logo.svg"}),
		},
		Resources: []admin.Resource{
			{Model: &models.Admin{}},
			{Model: &models.Category{}},
			{Model: &models.Product{}},
			{Model: &models.Config{}},
		},
		LogoURL: "https://example.com/logo-white.svg",
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	require.NoError(t, module.Configure(context.Background(), cfg))

	app := fiber.New()
	app.Mount(module.Prefix(), module.App())

	return &harness{app: app, module: module, db: db, store: store}
}

func (h *harness) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (h *harness) get(t *testing.T, path string, cookies ...*http.Cookie) (*http.Response, string) {
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return h.do(t, req)
}

func (h *harness) post(t *testing.T, path string, form url.Values, cookies ...*http.Cookie) (*http.Response, string) {
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return h.do(t, req)
}

func (h *harness) createAdmin(t *testing.T, username, password string) *models.Admin {
	t.Helper()
	a := &models.Admin{Username: username}
	require.NoError(t, a.SetPassword(password))
	require.NoError(t, h.db.Create(a).Error)
	return a
}

func (h *harness) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	resp, _ := h.post(t, "/admin/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	for _, c := range resp.Cookies() {
		if c.Name == "fiberadmin_session" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestModule_UnconfiguredReturns503(t *testing.T) {
	module := admin.New(admin.Options{Logger: discardLogger()})
	app := fiber.New()
	app.Mount("/admin", module.App())

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/admin/login", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	_, err = module.DB()
	assert.ErrorIs(t, err, admin.ErrNotConfigured)
}

func TestModule_ConfigureValidates(t *testing.T) {
	module := admin.New(admin.Options{Logger: discardLogger()})

	err := module.Configure(context.Background(), admin.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB is required")
	assert.Contains(t, err.Error(), "Cache is required")
	assert.Contains(t, err.Error(), "at least one provider")
	assert.False(t, module.Configured())
}

func TestModule_ConfigureTwice(t *testing.T) {
	h := newHarness(t)
	err := h.module.Configure(context.Background(), admin.Config{
		DB:        h.db,
		Cache:     h.store,
		Providers: []admin.Provider{admin.NewLoginProvider(admin.LoginConfig{Secret: "x"})},
	})
	assert.Error(t, err)
}

func TestModule_ResetStopsServing(t *testing.T) {
	h := newHarness(t)
	h.module.Reset()

	resp, _ := h.get(t, "/admin/login")
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestModule_NotFoundPage(t *testing.T) {
	h := newHarness(t)

	resp, body := h.get(t, "/admin/does-not-exist")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Page not found")
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/html")
}

func TestModule_UnknownResourceIs404(t *testing.T) {
	h := newHarness(t)
	h.createAdmin(t, "root", "secret")
	cookie := h.login(t, "root", "secret")

	resp, body := h.get(t, "/admin/widgets/list", cookie)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Page not found")
}

func TestModule_UnauthenticatedRedirectsToLogin(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/admin", "/admin/products/list", "/admin/password"} {
		resp, _ := h.get(t, path)
		assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/admin/login", resp.Header.Get(fiber.HeaderLocation), path)
	}
}

func TestModule_TemplateFolderOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "errors"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "errors", "404.html"), []byte(`<h1>custom missing {{.Status}}</h1>`), 0o644))

	h := newHarness(t, func(cfg *admin.Config) {
		cfg.TemplateFolders = []string{filepath.Join(dir, "missing"), dir}
	})

	resp, body := h.get(t, "/admin/nope")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "custom missing 404")
}

func TestModule_TemplateOverrideUsesBuiltInPartials(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "errors"), 0o755))
	page := `{{template "partials/head" .}}<h1>custom {{.Message}}</h1>{{template "partials/foot" .}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "errors", "404.html"), []byte(page), 0o644))

	h := newHarness(t, func(cfg *admin.Config) {
		cfg.TemplateFolders = []string{dir}
	})

	resp, body := h.get(t, "/admin/does-not-exist")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), fiber.MIMETextHTML)
	assert.Contains(t, body, "<h1>custom")
	assert.Contains(t, body, "tabler", "head partial comes from the built-in templates")
}

func TestModule_EarlierTemplateFolderWins(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	for dir, text := range map[string]string{first: "first", second: "second"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "errors"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "errors", "404.html"), []byte(text), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(second, "partials"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(second, "partials", "foot.html"), []byte("<footer>second foot</footer>"), 0o644))

	views, err := admin.NewViews([]string{first, second}, discardLogger())
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, views.Render(&buf, "errors/404", nil))
	assert.Equal(t, "first", buf.String())

	buf.Reset()
	require.NoError(t, views.Render(&buf, "partials/foot", nil))
	assert.Equal(t, "<footer>second foot</footer>", buf.String())

	assert.True(t, views.Exists("dashboard"))
	assert.False(t, views.Exists("nope"))
}

func TestModule_UnregisteredStatusFallsBack(t *testing.T) {
	module := admin.New(admin.Options{Logger: discardLogger()})
	app := fiber.New()
	app.Mount("/admin", module.App())

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/admin", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "admin module is not configured")
}
