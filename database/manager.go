package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Manager manages database connections using a pluggable driver.
type Manager struct {
	driver Driver
	cfg    *Config
	logger *slog.Logger

	mu sync.Mutex
	db *gorm.DB
}

// NewManager creates a new database manager with the given driver and config.
func NewManager(driver Driver, cfg *Config, logger *slog.Logger) *Manager {
	if cfg == nil {
		cfg = DefaultConfig("")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		driver: driver,
		cfg:    cfg,
		logger: logger,
	}
}

// Connect returns a GORM session, opening the pool on first call.
// After Close, the next Connect opens a fresh pool.
func (m *Manager) Connect() (*gorm.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		if err := m.open(); err != nil {
			return nil, err
		}
	}
	return m.db.Session(&gorm.Session{}), nil
}

// GetConnection returns nil if the connection fails.
func (m *Manager) GetConnection() *gorm.DB {
	db, err := m.Connect()
	if err != nil {
		m.logger.Error("failed to get database connection", slog.Any("error", err))
		return nil
	}
	return db
}

// Migrate creates or updates the tables backing the given models.
func (m *Manager) Migrate(models ...any) error {
	if len(models) == 0 {
		return nil
	}
	db, err := m.Connect()
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}
	m.logger.Info("database schema generated", slog.Int("models", len(models)))
	return nil
}

// Ping verifies the pool can reach the database.
func (m *Manager) Ping(ctx context.Context) error {
	db, err := m.Connect()
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database: access sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// OpenConnections reports the pool's open connections, 0 when closed.
func (m *Manager) OpenConnections() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return 0
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return 0
	}
	return sqlDB.Stats().OpenConnections
}

// Close closes the pool. Closing an unopened manager is a no-op.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	db := m.db
	m.db = nil

	if err := m.driver.Close(db, m.logger); err != nil {
		m.logger.Warn("driver cleanup error", slog.Any("error", err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database: access sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("database: close: %w", err)
	}

	m.logger.Info("database connection closed", slog.String("driver", m.driver.Name()))
	return nil
}

// Driver returns the underlying driver.
func (m *Manager) Driver() Driver {
	return m.driver
}

// open must be called with mu held.
func (m *Manager) open() error {
	dsn := m.driver.ConfigureDSN(m.cfg.DSN, m.cfg)

	gormLogger := NewGormLogger(m.logger.With(slog.String("component", "gorm")), m.cfg.SlowThreshold)

	db, err := gorm.Open(m.driver.Open(dsn), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("database: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database: access sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(m.cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(m.cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(m.cfg.ConnMaxLifetime)

	if err := m.driver.AfterConnect(db, m.cfg, m.logger); err != nil {
		_ = sqlDB.Close()
		return err
	}

	m.logger.Info("database connection established",
		slog.String("driver", m.driver.Name()),
		slog.Int("max_open", m.cfg.MaxOpenConns),
		slog.Int("max_idle", m.cfg.MaxIdleConns),
	)

	m.db = db
	return nil
}
