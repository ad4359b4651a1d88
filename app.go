package fiberadmin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/karloscodes/fiberadmin/admin"
	"github.com/karloscodes/fiberadmin/cache"
	"github.com/karloscodes/fiberadmin/config"
	"github.com/karloscodes/fiberadmin/database"
	"github.com/karloscodes/fiberadmin/models"
	"github.com/karloscodes/fiberadmin/postgres"
	"github.com/karloscodes/fiberadmin/sqlite"
)

// Route prefixes of the assembled application.
const (
	AdminPrefix  = "/admin"
	StaticPrefix = "/static"
)

type appOptions struct {
	serverConfig    *ServerConfig
	models          []any
	resources       []admin.Resource
	providers       []admin.Provider
	templateFolders []string
	cacheOptions    []cache.Option
	shutdownTimeout time.Duration
}

// Option customizes NewApp.
type Option func(*appOptions)

// WithServerConfig replaces DefaultServerConfig. Config and Logger are
// filled in by NewApp.
func WithServerConfig(cfg *ServerConfig) Option {
	return func(o *appOptions) { o.serverConfig = cfg }
}

// WithModels replaces the models schema generation creates.
func WithModels(m ...any) Option {
	return func(o *appOptions) { o.models = m }
}

// WithResources replaces the models listed in the admin panel. By default
// every model is listed.
func WithResources(r ...admin.Resource) Option {
	return func(o *appOptions) { o.resources = r }
}

// WithProviders replaces the default login provider.
func WithProviders(p ...admin.Provider) Option {
	return func(o *appOptions) { o.providers = p }
}

// WithTemplateFolders adds folders searched before <BaseDir>/templates.
func WithTemplateFolders(dirs ...string) Option {
	return func(o *appOptions) { o.templateFolders = append(o.templateFolders, dirs...) }
}

// WithCacheOptions passes options to cache.Open.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(o *appOptions) { o.cacheOptions = append(o.cacheOptions, opts...) }
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.shutdownTimeout = d }
}

// NewApp assembles the application: the top-level server with CORS and the
// shared middleware, /static, the / redirect, the admin module under
// /admin with its error handlers, and the lifespan that connects the
// database, generates the schema, opens the cache and configures the admin
// module, in that order. Nothing is connected until Run or Lifespan.Start.
func NewApp(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("fiberadmin: config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	o := &appOptions{
		models:          models.All(),
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	manager, err := newDatabaseManager(cfg, logger)
	if err != nil {
		return nil, err
	}

	serverCfg := o.serverConfig
	if serverCfg == nil {
		serverCfg = DefaultServerConfig()
	}
	serverCfg.Config = cfg
	serverCfg.Logger = logger
	server, err := NewServer(serverCfg)
	if err != nil {
		return nil, err
	}

	module := admin.New(admin.Options{Prefix: AdminPrefix, Logger: logger})
	module.AddExceptionHandler(fiber.StatusInternalServerError, admin.ServerErrorHandler)
	module.AddExceptionHandler(fiber.StatusNotFound, admin.NotFoundHandler)
	module.AddExceptionHandler(fiber.StatusForbidden, admin.ForbiddenHandler)
	module.AddExceptionHandler(fiber.StatusUnauthorized, admin.UnauthorizedHandler)

	if err := server.Static(StaticPrefix, cfg.StaticDirectory()); err != nil {
		return nil, err
	}
	server.Redirect("/", AdminPrefix)
	server.Mount(AdminPrefix, module.App())

	app := &Application{
		Config:          cfg,
		Logger:          logger,
		Server:          server,
		Lifespan:        NewLifespan(logger),
		DB:              manager,
		Admin:           module,
		ShutdownTimeout: o.shutdownTimeout,
	}
	app.registerHooks(o)

	return app, nil
}

func (a *Application) registerHooks(o *appOptions) {
	cfg := a.Config

	a.Lifespan.Append(Hook{
		Name: "database",
		OnStart: func(ctx context.Context) error {
			if _, err := a.DB.Connect(); err != nil {
				return err
			}
			return a.DB.Ping(ctx)
		},
		OnStop: func(context.Context) error {
			return a.DB.Close()
		},
	})

	a.Lifespan.Append(Hook{
		Name: "schema",
		OnStart: func(context.Context) error {
			return a.DB.Migrate(o.models...)
		},
	})

	a.Lifespan.Append(Hook{
		Name: "cache",
		OnStart: func(ctx context.Context) error {
			cacheOpts := append([]cache.Option{
				cache.WithTTL(cfg.SessionTTL()),
				cache.WithKeyPrefix(cfg.AppName + ":"),
				cache.WithLogger(a.Logger.With(slog.String("component", "cache"))),
			}, o.cacheOptions...)

			store, err := cache.Open(ctx, cfg.RedisURL, cacheOpts...)
			if err != nil {
				return err
			}
			a.cache = store
			return nil
		},
		OnStop: func(context.Context) error {
			if a.cache == nil {
				return nil
			}
			return a.cache.Close()
		},
	})

	a.Lifespan.Append(Hook{
		Name: "admin",
		OnStart: func(ctx context.Context) error {
			db, err := a.DB.Connect()
			if err != nil {
				return err
			}

			providers := o.providers
			if len(providers) == 0 {
				providers = []admin.Provider{admin.NewLoginProvider(admin.LoginConfig{
					Secret:       cfg.SessionSecret,
					LoginLogoURL: cfg.LoginLogoURL,
					TTL:          cfg.SessionTTL(),
					Secure:       cfg.IsProduction(),
				})}
			}

			resources := o.resources
			if resources == nil {
				for _, m := range o.models {
					resources = append(resources, admin.Resource{Model: m})
				}
			}

			return a.Admin.Configure(ctx, admin.Config{
				DB:              db,
				Cache:           a.cache,
				TemplateFolders: append(append([]string(nil), o.templateFolders...), cfg.TemplatesDirectory()),
				Providers:       providers,
				Resources:       resources,
				LogoURL:         cfg.LogoURL,
				FaviconURL:      cfg.FaviconURL,
				Title:           cfg.AppName,
			})
		},
		OnStop: func(context.Context) error {
			a.Admin.Reset()
			return nil
		},
	})
}

var _ DBManager = (*database.Manager)(nil)

// newDatabaseManager picks the driver from the database URL scheme.
func newDatabaseManager(cfg *config.Config, logger *slog.Logger) (*database.Manager, error) {
	driverName, dsn, err := database.ParseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	dbCfg := database.DefaultConfig(dsn)
	dbCfg.MaxOpenConns = cfg.GetMaxOpenConns()
	dbCfg.MaxIdleConns = cfg.GetMaxIdleConns()

	var driver database.Driver
	switch driverName {
	case database.SQLite:
		driver = sqlite.NewDriver()
		// SQLite has a single writer; an in-memory database lives only as
		// long as its one connection.
		dbCfg.MaxOpenConns = 1
		dbCfg.MaxIdleConns = 1
		if strings.HasPrefix(dsn, ":memory:") {
			dbCfg.ConnMaxLifetime = 0
		}
	case database.Postgres:
		driver = postgres.NewDriver()
	default:
		return nil, fmt.Errorf("%w: %q", database.ErrUnsupportedScheme, driverName)
	}

	return database.NewManager(driver, dbCfg, logger.With(slog.String("component", "database"))), nil
}
