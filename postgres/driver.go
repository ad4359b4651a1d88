// Package postgres provides the PostgreSQL database driver.
package postgres

import (
	"fmt"
	"log/slog"
	"net/url"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/karloscodes/fiberadmin/database"
)

// Driver implements database.Driver for PostgreSQL.
type Driver struct{}

// NewDriver creates a new PostgreSQL driver.
func NewDriver() *Driver {
	return &Driver{}
}

func (d *Driver) Name() string {
	return database.Postgres
}

func (d *Driver) Open(dsn string) gorm.Dialector {
	return postgres.Open(dsn)
}

// ConfigureDSN adds sslmode and TimeZone unless the URL already sets them.
func (d *Driver) ConfigureDSN(dsn string, cfg *database.Config) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}

	q := u.Query()
	if cfg.Postgres.SSLMode != "" && q.Get("sslmode") == "" {
		q.Set("sslmode", cfg.Postgres.SSLMode)
	}
	if cfg.Postgres.Timezone != "" && q.Get("TimeZone") == "" {
		q.Set("TimeZone", cfg.Postgres.Timezone)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// AfterConnect sets the search path if configured.
func (d *Driver) AfterConnect(db *gorm.DB, cfg *database.Config, logger *slog.Logger) error {
	if cfg.Postgres.SearchPath == "" {
		return nil
	}
	if err := db.Exec("SELECT set_config('search_path', ?, false)", cfg.Postgres.SearchPath).Error; err != nil {
		logger.Error("failed to set search_path", slog.String("search_path", cfg.Postgres.SearchPath), slog.Any("error", err))
		return fmt.Errorf("postgres: set search_path: %w", err)
	}
	return nil
}

// Close is a no-op for PostgreSQL.
func (d *Driver) Close(db *gorm.DB, logger *slog.Logger) error {
	return nil
}

var _ database.Driver = (*Driver)(nil)
