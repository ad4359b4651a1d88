package database

import (
	"log/slog"

	"gorm.io/gorm"
)

// Driver defines the interface for database-specific operations.
type Driver interface {
	// Name returns the driver name (e.g., "sqlite", "postgres").
	Name() string

	// Open returns a GORM dialector for this database.
	Open(dsn string) gorm.Dialector

	// ConfigureDSN modifies the DSN with driver-specific options.
	ConfigureDSN(dsn string, cfg *Config) string

	// AfterConnect runs driver-specific setup after connection is established.
	AfterConnect(db *gorm.DB, cfg *Config, logger *slog.Logger) error

	// Close performs driver-specific cleanup before the pool is closed.
	Close(db *gorm.DB, logger *slog.Logger) error
}
