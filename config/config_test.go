package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FIBERADMIN_ENV", "test")
	t.Setenv("FIBERADMIN_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("FIBERADMIN_LOGS_DIR", filepath.Join(dir, "logs"))
	// Empty values are ignored by viper, so these mask the host environment.
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	setTestEnv(t)

	cfg, err := Load("fiberadmin")
	require.NoError(t, err)

	assert.Equal(t, "fiberadmin", cfg.AppName)
	assert.Equal(t, Test, cfg.Environment)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "sqlite://:memory:", cfg.DatabaseURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, DefaultLogoURL, cfg.LogoURL)
	assert.Equal(t, DefaultLoginLogoURL, cfg.LoginLogoURL)
	assert.Equal(t, DefaultFaviconURL, cfg.FaviconURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.SessionSecret)
	assert.Equal(t, time.Hour, cfg.SessionTTL())
}

func TestLoad_EnvOverrides(t *testing.T) {
	setTestEnv(t)
	t.Setenv("FIBERADMIN_PORT", "9090")
	t.Setenv("FIBERADMIN_DATABASE_URL", "postgres://admin@db/admin")
	t.Setenv("FIBERADMIN_REDIS_URL", "redis://cache:6379/2")
	t.Setenv("FIBERADMIN_BASE_DIR", "/srv/admin")
	t.Setenv("FIBERADMIN_LOGO_URL", "https://example.com/logo.svg")

	cfg, err := Load("fiberadmin")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.GetPort())
	assert.Equal(t, "postgres://admin@db/admin", cfg.DatabaseURL)
	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
	assert.Equal(t, "https://example.com/logo.svg", cfg.LogoURL)
	assert.Equal(t, filepath.Join("/srv/admin", "templates"), cfg.TemplatesDirectory())
	assert.Equal(t, filepath.Join("/srv/admin", "static"), cfg.StaticDirectory())
}

func TestLoad_UnprefixedURLs(t *testing.T) {
	setTestEnv(t)
	t.Setenv("DATABASE_URL", "sqlite://other.db")
	t.Setenv("REDIS_URL", "memory://")

	cfg, err := Load("fiberadmin")
	require.NoError(t, err)

	assert.Equal(t, "sqlite://other.db", cfg.DatabaseURL)
	assert.Equal(t, "memory://", cfg.RedisURL)
}

func TestLoad_DevelopmentDatabasePath(t *testing.T) {
	dir := setTestEnv(t)
	t.Setenv("FIBERADMIN_ENV", "development")

	cfg, err := Load("fiberadmin")
	require.NoError(t, err)

	want := "sqlite://" + filepath.Join(dir, "data", "fiberadmin.development.db")
	assert.Equal(t, want, cfg.DatabaseURL)
	assert.DirExists(t, filepath.Join(dir, "data"))
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	setTestEnv(t)
	t.Setenv("FIBERADMIN_ENV", "production")

	_, err := Load("fiberadmin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIBERADMIN_SESSION_SECRET is REQUIRED")
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	setTestEnv(t)
	t.Setenv("FIBERADMIN_ENV", "staging")

	_, err := Load("fiberadmin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid FIBERADMIN_ENV value "staging"`)
}

func TestConfig_Environments(t *testing.T) {
	cfg := &Config{Environment: Production}
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsTest())
	assert.Equal(t, 10, cfg.GetMaxOpenConns())
	assert.Equal(t, 5, cfg.GetMaxIdleConns())

	cfg.Environment = Development
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 1, cfg.GetMaxOpenConns())

	cfg.MaxOpenConns = 4
	assert.Equal(t, 4, cfg.GetMaxOpenConns())
}

func TestValidate_MissingCacheURL(t *testing.T) {
	cfg := &Config{
		Environment:       Test,
		DatabaseURL:       "sqlite://:memory:",
		SessionTTLSeconds: 60,
		envPrefix:         "FIBERADMIN",
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIBERADMIN_REDIS_URL is required")
}
