// Package fiberadmin assembles an admin-panel web service on GoFiber.
//
// NewApp wires the whole application from a config.Config:
//
//   - a top-level Fiber app with permissive CORS, request ids, panic
//     recovery, security headers and request logging
//   - /static served from <BaseDir>/static
//   - GET / redirecting (307) to /admin
//   - the admin module mounted at /admin, with 401, 403, 404 and 500
//     handlers registered
//
// Startup runs through a Lifespan in a fixed order: database connection,
// schema generation, cache client, admin configuration. Shutdown runs the
// same hooks in reverse.
//
//	cfg, err := config.Load("fiberadmin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger := fiberadmin.NewLogger(cfg, fiberadmin.LogConfigFromProvider(cfg))
//
//	app, err := fiberadmin.NewApp(cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := app.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// Run blocks until the context is cancelled or the process receives SIGINT
// or SIGTERM.
package fiberadmin
