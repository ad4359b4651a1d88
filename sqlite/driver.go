// Package sqlite provides the SQLite database driver.
package sqlite

import (
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/karloscodes/fiberadmin/database"
)

// Driver implements database.Driver for SQLite.
type Driver struct{}

// NewDriver creates a new SQLite driver.
func NewDriver() *Driver {
	return &Driver{}
}

func (d *Driver) Name() string {
	return database.SQLite
}

func (d *Driver) Open(dsn string) gorm.Dialector {
	return sqlite.Open(dsn)
}

// ConfigureDSN adds _txlock=immediate when requested.
func (d *Driver) ConfigureDSN(dsn string, cfg *database.Config) string {
	if !cfg.SQLite.TxImmediate {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + "_txlock=immediate"
}

// AfterConnect applies SQLite pragmas. WAL is skipped for in-memory databases.
func (d *Driver) AfterConnect(db *gorm.DB, cfg *database.Config, logger *slog.Logger) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.SQLite.BusyTimeout),
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}

	if cfg.SQLite.EnableWAL && !isMemory(cfg.DSN) {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			logger.Error("failed to apply pragma", slog.String("pragma", pragma), slog.Any("error", err))
			return fmt.Errorf("sqlite: apply pragma %s: %w", pragma, err)
		}
	}

	return nil
}

// Close performs a passive WAL checkpoint before the pool is closed.
func (d *Driver) Close(db *gorm.DB, logger *slog.Logger) error {
	logger.Debug("performing WAL checkpoint before close")
	return Checkpoint(db, "PASSIVE")
}

// Checkpoint performs a WAL checkpoint.
// Modes: PASSIVE, FULL, RESTART, TRUNCATE
func Checkpoint(db *gorm.DB, mode string) error {
	switch mode {
	case "PASSIVE", "FULL", "RESTART", "TRUNCATE":
	default:
		return fmt.Errorf("sqlite: invalid checkpoint mode %q", mode)
	}
	return db.Exec("PRAGMA wal_checkpoint(" + mode + ");").Error
}

func isMemory(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

var _ database.Driver = (*Driver)(nil)
