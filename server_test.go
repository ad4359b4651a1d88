package fiberadmin

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karloscodes/fiberadmin/config"
)

func newTestServer(t *testing.T, mutate ...func(*ServerConfig)) *Server {
	t.Helper()
	cfg := DefaultServerConfig()
	cfg.Config = &config.Config{Environment: config.Test, Port: "0"}
	cfg.Logger = quietLogger()
	for _, fn := range mutate {
		fn(cfg)
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(nil)
	assert.EqualError(t, err, "fiberadmin: server config is required")

	_, err = NewServer(&ServerConfig{Logger: quietLogger()})
	assert.EqualError(t, err, "fiberadmin: runtime config is required")

	_, err = NewServer(&ServerConfig{Config: &config.Config{Environment: config.Test}})
	assert.EqualError(t, err, "fiberadmin: logger is required")
}

func TestServer_Redirect(t *testing.T) {
	s := newTestServer(t)
	s.Redirect("/", "/admin")
	s.Redirect("/old", "/new", fiber.StatusMovedPermanently)

	resp, err := s.App().Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get(fiber.HeaderLocation))

	resp, err = s.App().Test(httptest.NewRequest(fiber.MethodGet, "/old", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusMovedPermanently, resp.StatusCode)
}

func TestServer_Static(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.css"), []byte("body{}"), 0o644))

	s := newTestServer(t)
	require.NoError(t, s.Static("/static", dir))

	resp, err := s.App().Test(httptest.NewRequest(fiber.MethodGet, "/static/app.css", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(body))

	err = s.Static("/missing", filepath.Join(dir, "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "static directory")

	err = s.Static("/file", filepath.Join(dir, "app.css"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")
}

func TestServer_MountedSubAppAndMiddleware(t *testing.T) {
	s := newTestServer(t)
	sub := fiber.New()
	sub.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	s.Mount("/admin", sub)

	req := httptest.NewRequest(fiber.MethodGet, "/admin/ping", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://example.com")
	resp, err := s.App().Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://example.com", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	assert.Equal(t, "nosniff", resp.Header.Get(fiber.HeaderXContentTypeOptions))
}

func TestServer_MiddlewareDisabled(t *testing.T) {
	s := newTestServer(t, func(cfg *ServerConfig) {
		cfg.EnableCORS = false
		cfg.EnableRequestID = false
	})
	s.App().Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://example.com")
	resp, err := s.App().Test(req)
	require.NoError(t, err)

	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Empty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}
