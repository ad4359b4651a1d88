package main

import (
	"context"
	"log"
	"os"

	"github.com/karloscodes/fiberadmin"
	"github.com/karloscodes/fiberadmin/config"
)

func main() {
	cfg, err := config.Load("fiberadmin")
	if err != nil {
		log.Fatalf("fiberadmin: load config: %v", err)
	}

	logger := fiberadmin.NewLogger(cfg, fiberadmin.LogConfigFromProvider(cfg))

	app, err := fiberadmin.NewApp(cfg, logger)
	if err != nil {
		logger.Error("Failed to build application", "error", err)
		os.Exit(1)
	}

	if err := app.Run(context.Background()); err != nil {
		logger.Error("Application stopped with error", "error", err)
		os.Exit(1)
	}
}
