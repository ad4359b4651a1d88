package fiberadmin

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/karloscodes/fiberadmin/admin"
	"github.com/karloscodes/fiberadmin/cache"
	"github.com/karloscodes/fiberadmin/config"
	"github.com/karloscodes/fiberadmin/database"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// Application is the assembled admin service. Build it with NewApp.
type Application struct {
	Config   *config.Config
	Logger   *slog.Logger
	Server   *Server
	Lifespan *Lifespan
	DB       *database.Manager
	Admin    *admin.Module

	ShutdownTimeout time.Duration

	cache cache.Store
}

// Cache returns the cache store, or nil before startup.
func (a *Application) Cache() cache.Store {
	return a.cache
}

// Run starts the lifespan, listens on the configured port and blocks until
// ctx is cancelled or SIGINT/SIGTERM arrives, then shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	return a.run(ctx, a.Server.Start)
}

// Serve is Run on an existing listener.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	return a.run(ctx, func() error { return a.Server.Serve(ln) })
}

func (a *Application) run(ctx context.Context, serve func() error) error {
	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if err := a.Lifespan.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return serve()
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("Shutting down gracefully...")
		shutdownCtx, done := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer done()
		return a.Server.Shutdown(shutdownCtx)
	})
	runErr := g.Wait()

	stopCtx, done := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer done()
	stopErr := a.Lifespan.Stop(stopCtx)

	if err := errors.Join(runErr, stopErr); err != nil {
		a.Logger.Error("Shutdown finished with errors", "error", err)
		return err
	}
	a.Logger.Info("Shutdown complete")
	return nil
}

func (a *Application) shutdownTimeout() time.Duration {
	if a.ShutdownTimeout > 0 {
		return a.ShutdownTimeout
	}
	return DefaultShutdownTimeout
}
