package testsupport

import (
	"testing"

	"gorm.io/gorm"

	"github.com/karloscodes/fiberadmin/database"
	"github.com/karloscodes/fiberadmin/models"
	"github.com/karloscodes/fiberadmin/sqlite"
)

// TestDBOptions configures test database creation.
type TestDBOptions struct {
	// Models to migrate (default: models.All())
	Models []any

	// Enable SQL logging through the test logger
	Verbose bool
}

// NewTestManager creates a database manager over an in-memory SQLite
// database with the models migrated. The pool is closed on cleanup.
func NewTestManager(t *testing.T, opts ...TestDBOptions) *database.Manager {
	t.Helper()

	var options TestDBOptions
	if len(opts) > 0 {
		options = opts[0]
	}
	if options.Models == nil {
		options.Models = models.All()
	}

	cfg := database.DefaultConfig(":memory:")
	cfg.MaxOpenConns = 1
	cfg.MaxIdleConns = 1
	cfg.ConnMaxLifetime = 0
	logger := NewTestLogger()
	if options.Verbose {
		logger = NewVerboseTestLogger(t)
	}

	manager := database.NewManager(sqlite.NewDriver(), cfg, logger)
	t.Cleanup(func() {
		if err := manager.Close(); err != nil {
			t.Errorf("testsupport: close test database: %v", err)
		}
	})

	if err := manager.Migrate(options.Models...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}
	return manager
}

// SetupTestDB is NewTestManager returning the connection.
func SetupTestDB(t *testing.T, opts ...TestDBOptions) *gorm.DB {
	t.Helper()

	db, err := NewTestManager(t, opts...).Connect()
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}
	return db
}
