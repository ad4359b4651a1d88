package testsupport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/karloscodes/fiberadmin"
	"github.com/karloscodes/fiberadmin/config"
)

// TestApp wraps a started fiberadmin.Application for HTTP assertions.
type TestApp struct {
	t   *testing.T
	App *fiberadmin.Application
}

// NewTestApp builds the application from cfg (NewTestConfig when nil),
// runs its startup hooks and stops them on cleanup.
func NewTestApp(t *testing.T, cfg *config.Config, opts ...fiberadmin.Option) *TestApp {
	t.Helper()

	if cfg == nil {
		cfg = NewTestConfig(t)
	}

	app, err := fiberadmin.NewApp(cfg, NewTestLogger(), opts...)
	if err != nil {
		t.Fatalf("testsupport: failed to create app: %v", err)
	}
	if err := app.Lifespan.Start(context.Background()); err != nil {
		t.Fatalf("testsupport: failed to start app: %v", err)
	}
	t.Cleanup(func() {
		if err := app.Lifespan.Stop(context.Background()); err != nil {
			t.Errorf("testsupport: stop app: %v", err)
		}
	})

	return &TestApp{t: t, App: app}
}

// Do performs req against the application and returns the response with
// its body read.
func (ta *TestApp) Do(req *http.Request) (*http.Response, string) {
	ta.t.Helper()

	resp, err := ta.App.Server.App().Test(req, -1)
	if err != nil {
		ta.t.Fatalf("testsupport: request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		ta.t.Fatalf("testsupport: read body: %v", err)
	}
	return resp, string(body)
}

// Get performs a GET request.
func (ta *TestApp) Get(path string, cookies ...*http.Cookie) (*http.Response, string) {
	ta.t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return ta.Do(req)
}

// PostForm performs a form-encoded POST request.
func (ta *TestApp) PostForm(path string, form url.Values, cookies ...*http.Cookie) (*http.Response, string) {
	ta.t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return ta.Do(req)
}
