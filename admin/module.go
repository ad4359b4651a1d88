// Package admin serves the admin panel mounted under /admin: login,
// a dashboard, listings of the declared models and per-status error pages.
//
// A Module is created unconfigured and replies 503 until Configure runs,
// which normally happens in a startup hook once the database and cache are
// ready. Provider routes must be registered before the server starts.
package admin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/karloscodes/fiberadmin/cache"
)

// ErrNotConfigured is returned by accessors used before Configure.
var ErrNotConfigured = errors.New("admin: module not configured")

// ExceptionHandler renders the reply for an error with a given status code.
type ExceptionHandler func(c *fiber.Ctx, err error) error

type localsKey int

const (
	moduleKey localsKey = iota
	sessionKey
)

// Options configures a new Module.
type Options struct {
	// Prefix is where the module is mounted. Default: "/admin".
	Prefix string

	Logger *slog.Logger
}

// Module is the admin panel sub-application.
type Module struct {
	app    *fiber.App
	prefix string
	logger *slog.Logger

	mu        sync.RWMutex
	cfg       *Config
	views     *Views
	resources map[string]*resource
	handlers  map[int]ExceptionHandler
}

// New creates an unconfigured module with its Fiber sub-application.
func New(opts Options) *Module {
	prefix := strings.TrimRight(opts.Prefix, "/")
	if prefix == "" {
		prefix = "/admin"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Module{
		prefix:   prefix,
		logger:   logger.With(slog.String("component", "admin")),
		handlers: make(map[int]ExceptionHandler),
	}

	// Default pages are available before Configure so error replies render.
	views, err := NewViews(nil, m.logger)
	if err != nil {
		m.logger.Error("failed to load default admin templates", slog.Any("error", err))
	}
	m.views = views

	m.app = fiber.New(fiber.Config{
		ErrorHandler: m.handleError,
	})
	m.app.Use(m.requireConfigured)
	m.registerRoutes()

	return m
}

// App returns the sub-application to mount under Prefix.
func (m *Module) App() *fiber.App {
	return m.app
}

// Prefix returns the mount path.
func (m *Module) Prefix() string {
	return m.prefix
}

// URL joins path onto the mount prefix.
func (m *Module) URL(path string) string {
	if path == "" || path == "/" {
		return m.prefix
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return m.prefix + path
}

// Configure validates cfg, loads the template folders, registers the
// providers and resources, and starts serving requests.
func (m *Module) Configure(ctx context.Context, cfg Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	cfg.applyDefaults()

	views, err := NewViews(cfg.TemplateFolders, m.logger)
	if err != nil {
		return fmt.Errorf("admin: load templates: %w", err)
	}

	resources, err := buildResources(cfg.DB, cfg.Resources)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.cfg != nil {
		m.mu.Unlock()
		return errors.New("admin: module already configured")
	}
	m.cfg = &cfg
	m.views = views
	m.resources = resources
	m.mu.Unlock()

	for _, p := range cfg.Providers {
		if err := p.Register(m); err != nil {
			m.Reset()
			return fmt.Errorf("admin: register provider %s: %w", p.Name(), err)
		}
	}

	m.logger.Info("admin module configured",
		slog.Int("providers", len(cfg.Providers)),
		slog.Int("resources", len(resources)),
		slog.Int("template_folders", len(cfg.TemplateFolders)),
	)
	return nil
}

// Reset clears the configuration. Requests get 503 afterwards. The cache
// and database handles are owned by the caller and are not closed.
func (m *Module) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = nil
	m.resources = nil
}

// Configured reports whether Configure has completed.
func (m *Module) Configured() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg != nil
}

// AddExceptionHandler routes errors with the given status code to fn.
func (m *Module) AddExceptionHandler(status int, fn ExceptionHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[status] = fn
}

func (m *Module) exceptionHandler(status int) ExceptionHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handlers[status]
}

// DB returns the configured database handle.
func (m *Module) DB() (*gorm.DB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cfg == nil {
		return nil, ErrNotConfigured
	}
	return m.cfg.DB, nil
}

// Cache returns the configured cache store.
func (m *Module) Cache() (cache.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cfg == nil {
		return nil, ErrNotConfigured
	}
	return m.cfg.Cache, nil
}

// Logger returns the module logger.
func (m *Module) Logger() *slog.Logger {
	return m.logger
}

func (m *Module) config() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Module) resource(name string) (*resource, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resources[name]
	return r, ok
}

func (m *Module) resourceList() []*resource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*resource, 0, len(m.resources))
	for _, r := range m.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

func (m *Module) requireConfigured(c *fiber.Ctx) error {
	if !m.Configured() {
		return fiber.NewError(fiber.StatusServiceUnavailable, "admin module is not configured")
	}
	c.Locals(moduleKey, m)
	return c.Next()
}

// RequireAuth asks each provider in turn for a session and rejects the
// request with 401 if none has one.
func (m *Module) RequireAuth(c *fiber.Ctx) error {
	cfg := m.config()
	if cfg == nil {
		return fiber.ErrServiceUnavailable
	}
	for _, p := range cfg.Providers {
		session, err := p.Authenticate(c)
		if err != nil {
			return err
		}
		if session != nil {
			c.Locals(sessionKey, session)
			return c.Next()
		}
	}
	return fiber.ErrUnauthorized
}

// Render writes the named template with the module's common data merged in.
func (m *Module) Render(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	m.mu.RLock()
	views := m.views
	m.mu.RUnlock()
	if views == nil {
		return fmt.Errorf("admin: render %s: no templates loaded", name)
	}

	var buf bytes.Buffer
	if err := views.Render(&buf, name, m.pageData(c, data)); err != nil {
		return fmt.Errorf("admin: render %s: %w", name, err)
	}
	c.Status(status)
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (m *Module) hasView(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.views != nil && m.views.Exists(name)
}

func (m *Module) pageData(c *fiber.Ctx, data fiber.Map) fiber.Map {
	out := fiber.Map{
		"Prefix":     m.prefix,
		"Title":      "Admin",
		"LogoURL":    "",
		"FaviconURL": "",
		"Path":       c.Path(),
	}
	if cfg := m.config(); cfg != nil {
		out["Title"] = cfg.Title
		out["LogoURL"] = cfg.LogoURL
		out["FaviconURL"] = cfg.FaviconURL
		out["Resources"] = m.resourceList()
	}
	if s := SessionFrom(c); s != nil {
		out["Session"] = s
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}

// handleError dispatches by status code to the registered exception
// handlers and falls back to a plain error page.
func (m *Module) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	c.Locals(moduleKey, m)

	if code >= fiber.StatusInternalServerError {
		m.logger.Error("admin request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("error", err),
		)
	}

	handler := m.exceptionHandler(code)
	if handler == nil {
		handler = defaultExceptionHandler
	}
	if herr := handler(c, err); herr != nil {
		m.logger.Error("exception handler failed", slog.Int("status", code), slog.Any("error", herr))
		return plainError(c, code, err)
	}
	return nil
}

// moduleFrom returns the module serving c, if any.
func moduleFrom(c *fiber.Ctx) *Module {
	m, _ := c.Locals(moduleKey).(*Module)
	return m
}

// SessionFrom returns the session RequireAuth attached to c.
func SessionFrom(c *fiber.Ctx) *Session {
	s, _ := c.Locals(sessionKey).(*Session)
	return s
}
