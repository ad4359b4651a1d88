package fiberadmin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"

	"github.com/karloscodes/fiberadmin/middleware"
)

// ServerConfig configures the top-level Fiber application.
type ServerConfig struct {
	// Core dependencies (required)
	Config RuntimeConfig
	Logger Logger

	// Fiber configuration
	ErrorHandler   fiber.ErrorHandler
	Concurrency    int
	ProxyHeader    string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration

	// Middleware configuration, applied in this order.
	EnableCORS          bool
	EnableRequestID     bool
	EnableRecover       bool
	EnableHelmet        bool
	EnableCompress      bool
	EnableRequestLogger bool
}

// DefaultServerConfig returns a configuration with every middleware enabled.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Concurrency:  256 * 1024,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,

		EnableCORS:          true,
		EnableRequestID:     true,
		EnableRecover:       true,
		EnableHelmet:        true,
		EnableCompress:      true,
		EnableRequestLogger: true,
	}
}

// Server is the top-level HTTP application the admin module is mounted on.
type Server struct {
	app *fiber.App
	cfg *ServerConfig
}

// NewServer creates a Fiber app with the global middleware installed.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("fiberadmin: server config is required")
	}
	if cfg.Config == nil {
		return nil, fmt.Errorf("fiberadmin: runtime config is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("fiberadmin: logger is required")
	}

	fiberCfg := fiber.Config{
		AppName:               "fiberadmin",
		DisableDefaultDate:    true,
		DisableStartupMessage: true,
		Concurrency:           cfg.Concurrency,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
	}
	if cfg.ProxyHeader != "" {
		fiberCfg.ProxyHeader = cfg.ProxyHeader
	}
	if len(cfg.TrustedProxies) > 0 {
		fiberCfg.EnableTrustedProxyCheck = true
		fiberCfg.TrustedProxies = cfg.TrustedProxies
	}
	if cfg.ErrorHandler != nil {
		fiberCfg.ErrorHandler = cfg.ErrorHandler
	} else {
		fiberCfg.ErrorHandler = DefaultErrorHandler(cfg.Logger, cfg.Config.IsDevelopment())
	}

	s := &Server{
		app: fiber.New(fiberCfg),
		cfg: cfg,
	}
	s.setupGlobalMiddleware()
	return s, nil
}

// setupGlobalMiddleware applies the middleware shared by every route,
// mounted sub-applications included.
func (s *Server) setupGlobalMiddleware() {
	if s.cfg.EnableCORS {
		s.app.Use(middleware.CORSAllowAll())
	}
	if s.cfg.EnableRequestID {
		s.app.Use(middleware.RequestID())
	}
	if s.cfg.EnableRecover {
		s.app.Use(middleware.Recover(s.cfg.Logger))
	}
	if s.cfg.EnableHelmet {
		s.app.Use(middleware.Helmet())
	}
	if s.cfg.EnableCompress {
		s.app.Use(compress.New(compress.Config{
			Level: compress.LevelDefault,
		}))
	}
	if s.cfg.EnableRequestLogger {
		s.app.Use(middleware.RequestLogger(s.cfg.Logger))
	}
}

// Static serves dir under prefix. The directory must exist.
func (s *Server) Static(prefix, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("fiberadmin: static directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("fiberadmin: static path %q is not a directory", dir)
	}

	cacheDuration := 24 * time.Hour
	if s.cfg.Config.IsDevelopment() {
		cacheDuration = -1
	}
	s.app.Static(prefix, dir, fiber.Static{
		Compress:      true,
		ByteRange:     true,
		Browse:        false,
		CacheDuration: cacheDuration,
	})
	return nil
}

// Redirect answers GET path with a redirect to target. The status defaults
// to 307 Temporary Redirect.
func (s *Server) Redirect(path, target string, status ...int) {
	code := fiber.StatusTemporaryRedirect
	if len(status) > 0 {
		code = status[0]
	}
	s.app.Get(path, func(c *fiber.Ctx) error {
		return c.Redirect(target, code)
	})
}

// Mount attaches a sub-application under prefix. Its routes are merged when
// the server starts, so they must be registered before Start.
func (s *Server) Mount(prefix string, sub *fiber.App) {
	s.app.Mount(prefix, sub)
}

// App returns the underlying Fiber application for advanced usage.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured port until Shutdown.
func (s *Server) Start() error {
	port := s.cfg.Config.GetPort()
	s.cfg.Logger.Info("Server started and ready to accept requests", "port", port)
	return s.app.Listen(":" + port)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.cfg.Logger.Info("Server started and ready to accept requests", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		s.cfg.Logger.Warn("Shutdown timed out, open connections were dropped")
	}
	return err
}
