package database

import "time"

// Config describes one connection pool. NewManager reads it once; the
// driver reads its own section.
type Config struct {
	// DSN is what ParseURL returned for the database URL: a file path or
	// ":memory:" for SQLite, a postgres:// URL for PostgreSQL.
	DSN string

	// Pool limits. SQLite wants a single writer, so both default to 1.
	MaxOpenConns int
	MaxIdleConns int

	// ConnMaxLifetime recycles pooled connections; zero keeps them forever,
	// which an in-memory SQLite database needs.
	ConnMaxLifetime time.Duration

	// SlowThreshold is the duration above which GORM logs a query as slow.
	SlowThreshold time.Duration

	SQLite   SQLiteOptions
	Postgres PostgresOptions
}

// SQLiteOptions are applied by sqlite.Driver and ignored by other drivers.
type SQLiteOptions struct {
	// BusyTimeout is how long, in milliseconds, a writer waits for the lock.
	BusyTimeout int

	// EnableWAL switches file databases to journal_mode=WAL.
	EnableWAL bool

	// TxImmediate adds _txlock=immediate so transactions take the write
	// lock up front.
	TxImmediate bool
}

// PostgresOptions are applied by postgres.Driver and ignored by other drivers.
type PostgresOptions struct {
	// SSLMode is added to the DSN when the URL has none.
	SSLMode string

	// Timezone is added to the DSN as TimeZone when the URL has none.
	Timezone string

	// SearchPath, when set, is applied to every new session.
	SearchPath string
}

// DefaultConfig returns a single-connection pool over dsn with WAL,
// a 5s busy timeout, sslmode=prefer and UTC.
func DefaultConfig(dsn string) *Config {
	return &Config{
		DSN:             dsn,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 10 * time.Minute,
		SlowThreshold:   200 * time.Millisecond,
		SQLite: SQLiteOptions{
			BusyTimeout: 5000,
			EnableWAL:   true,
			TxImmediate: true,
		},
		Postgres: PostgresOptions{
			SSLMode:  "prefer",
			Timezone: "UTC",
		},
	}
}
