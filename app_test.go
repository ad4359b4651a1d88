package fiberadmin_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karloscodes/fiberadmin"
	"github.com/karloscodes/fiberadmin/cache"
	"github.com/karloscodes/fiberadmin/config"
	"github.com/karloscodes/fiberadmin/database"
	"github.com/karloscodes/fiberadmin/testsupport"
)

func TestApp_RootRedirectsToAdmin(t *testing.T) {
	ta := testsupport.NewTestApp(t, nil)

	resp, _ := ta.Get("/")
	assert.Equal(t, fiber.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get(fiber.HeaderLocation))
}

func TestApp_ServesStaticFiles(t *testing.T) {
	cfg := testsupport.NewTestConfig(t)
	logo := []byte("\x89PNG\r\n\x1a\nnot-really-a-png")
	testsupport.WriteFile(t, cfg, "static/logo.png", logo)

	ta := testsupport.NewTestApp(t, cfg)

	resp, body := ta.Get("/static/logo.png")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, string(logo), body)

	resp, _ = ta.Get("/static/missing.png")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestApp_AdminNotFoundPage(t *testing.T) {
	ta := testsupport.NewTestApp(t, nil)

	resp, body := ta.Get("/admin/does-not-exist")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), fiber.MIMETextHTML)
	assert.Contains(t, body, "Page not found")
}

func TestApp_TemplateOverrideFromBaseDir(t *testing.T) {
	cfg := testsupport.NewTestConfig(t)
	testsupport.WriteFile(t, cfg, "templates/errors/404.html", []byte(`<h1>custom {{.Message}}</h1>`))

	ta := testsupport.NewTestApp(t, cfg)

	resp, body := ta.Get("/admin/does-not-exist")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "<h1>custom")
}

func TestApp_UnauthenticatedAdminRedirectsToLogin(t *testing.T) {
	ta := testsupport.NewTestApp(t, nil)

	resp, _ := ta.Get("/admin")
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/login", resp.Header.Get(fiber.HeaderLocation))
}

func TestApp_FirstAdminLoginFlow(t *testing.T) {
	ta := testsupport.NewTestApp(t, nil)

	resp, _ := ta.Get("/admin/login")
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/init", resp.Header.Get(fiber.HeaderLocation))

	resp, _ = ta.PostForm("/admin/init", url.Values{
		"username":         {"root"},
		"password":         {"s3cret-pass"},
		"confirm_password": {"s3cret-pass"},
	})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	resp, _ = ta.PostForm("/admin/login", url.Values{"username": {"root"}, "password": {"s3cret-pass"}})
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "fiberadmin_session" {
			session = c
		}
	}
	require.NotNil(t, session)

	resp, body := ta.Get("/admin", session)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "root")
	assert.Contains(t, body, config.DefaultLogoURL)
}

func TestApp_CORSAllowsAnyOrigin(t *testing.T) {
	ta := testsupport.NewTestApp(t, nil)

	req := httptest.NewRequest(fiber.MethodGet, "/admin/login", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://dashboard.example.com")
	resp, _ := ta.Do(req)

	assert.Equal(t, "https://dashboard.example.com", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", resp.Header.Get(fiber.HeaderAccessControlAllowCredentials))
}

func TestApp_ShutdownClosesDatabase(t *testing.T) {
	cfg := testsupport.NewTestConfig(t)
	app, err := fiberadmin.NewApp(cfg, testsupport.NewTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, app.Lifespan.Start(ctx))
	assert.Positive(t, app.DB.OpenConnections())
	assert.True(t, app.Admin.Configured())
	require.NotNil(t, app.Cache())

	require.NoError(t, app.Lifespan.Stop(ctx))
	assert.Equal(t, 0, app.DB.OpenConnections())
	assert.False(t, app.Admin.Configured())
}

func TestApp_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testsupport.NewTestConfig(t, func(c *config.Config) {
		c.RedisURL = "redis://" + mr.Addr() + "/0"
	})

	ta := testsupport.NewTestApp(t, cfg)

	require.NoError(t, ta.App.Cache().Ping(context.Background()))
	assert.Equal(t, "redis", ta.App.Cache().Stats(context.Background()).Backend)
}

func TestApp_CacheFailureRollsBackDatabase(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testsupport.NewTestConfig(t, func(c *config.Config) {
		c.RedisURL = "redis://" + addr + "/0"
	})
	app, err := fiberadmin.NewApp(cfg, testsupport.NewTestLogger())
	require.NoError(t, err)

	err = app.Lifespan.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start cache")
	assert.Equal(t, 0, app.DB.OpenConnections())
	assert.False(t, app.Admin.Configured())
}

func TestNewApp_Errors(t *testing.T) {
	t.Run("unsupported database scheme", func(t *testing.T) {
		cfg := testsupport.NewTestConfig(t, func(c *config.Config) {
			c.DatabaseURL = "mysql://root@localhost/admin"
		})
		_, err := fiberadmin.NewApp(cfg, testsupport.NewTestLogger())
		require.ErrorIs(t, err, database.ErrUnsupportedScheme)
	})

	t.Run("missing static directory", func(t *testing.T) {
		cfg := testsupport.NewTestConfig(t, func(c *config.Config) {
			c.BaseDir = t.TempDir()
		})
		_, err := fiberadmin.NewApp(cfg, testsupport.NewTestLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "static directory")
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := fiberadmin.NewApp(nil, testsupport.NewTestLogger())
		require.Error(t, err)
	})
}

func TestApplication_ServeUntilCancelled(t *testing.T) {
	cfg := testsupport.NewTestConfig(t)
	app, err := fiberadmin.NewApp(cfg, testsupport.NewTestLogger(), fiberadmin.WithShutdownTimeout(5*time.Second))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	client := &http.Client{
		Transport: &http.Transport{DisableKeepAlives: true},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: time.Second,
	}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusTemporaryRedirect
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.Equal(t, 0, app.DB.OpenConnections())
}

func TestApplication_ServeFailsWhenStartupFails(t *testing.T) {
	cfg := testsupport.NewTestConfig(t, func(c *config.Config) {
		c.RedisURL = "memcached://localhost:11211"
	})
	app, err := fiberadmin.NewApp(cfg, testsupport.NewTestLogger())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = app.Serve(context.Background(), ln)
	require.ErrorIs(t, err, cache.ErrUnsupportedScheme)
	assert.Contains(t, err.Error(), "start cache")
}

func TestApp_TemplateOverrideWithBuiltInPartials(t *testing.T) {
	cfg := testsupport.NewTestConfig(t)
	testsupport.WriteFile(t, cfg, "templates/errors/404.html",
		[]byte(`{{template "partials/head" .}}<h1>custom {{.Message}}</h1>{{template "partials/foot" .}}`))

	ta := testsupport.NewTestApp(t, cfg)

	resp, body := ta.Get("/admin/does-not-exist")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), fiber.MIMETextHTML)
	assert.Contains(t, body, "<h1>custom")
}
