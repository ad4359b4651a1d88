package fiberadmin

import "gorm.io/gorm"

// Logger abstracts the logging calls made by the server and middleware.
// *slog.Logger satisfies it directly.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// RuntimeConfig abstracts the environment-dependent settings the server reads.
type RuntimeConfig interface {
	IsDevelopment() bool
	IsProduction() bool
	IsTest() bool

	// GetPort returns the HTTP server port.
	GetPort() string
}

// DBManager abstracts database connection management.
type DBManager interface {
	// Connect returns a GORM session, opening the pool on first use.
	Connect() (*gorm.DB, error)

	// Migrate generates schema objects for the given models.
	Migrate(models ...any) error

	// OpenConnections reports the pool's currently open connections.
	OpenConnections() int

	// Close releases the pool.
	Close() error
}
