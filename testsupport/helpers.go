package testsupport

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/karloscodes/fiberadmin/config"
)

// NewTestLogger creates a slog.Logger that discards all output.
// Use this for tests where you don't need to verify log messages.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewVerboseTestLogger logs at debug level through t.Log.
func NewVerboseTestLogger(t *testing.T) *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// NewTestConfig returns a validated test-environment config with an
// in-memory database, the memory cache and a temporary BaseDir that
// already contains empty static/ and templates/ directories.
func NewTestConfig(t *testing.T, overrides ...func(*config.Config)) *config.Config {
	t.Helper()

	base := t.TempDir()
	for _, dir := range []string{"static", "templates"} {
		if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			t.Fatalf("testsupport: create %s: %v", dir, err)
		}
	}

	cfg := &config.Config{
		AppName:           "fiberadmin",
		Environment:       config.Test,
		Port:              "0",
		LogLevel:          "error",
		SessionSecret:     "test-session-secret",
		SessionTTLSeconds: 3600,
		DatabaseURL:       "sqlite://:memory:",
		DataDirectory:     filepath.Join(base, "storage"),
		LogsDirectory:     filepath.Join(base, "logs"),
		RedisURL:          "memory://",
		BaseDir:           base,
		LogoURL:           config.DefaultLogoURL,
		LoginLogoURL:      config.DefaultLoginLogoURL,
		FaviconURL:        config.DefaultFaviconURL,
	}
	for _, fn := range overrides {
		fn(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("testsupport: invalid test config: %v", err)
	}
	return cfg
}

// WriteFile writes data to a path relative to cfg.BaseDir.
func WriteFile(t *testing.T, cfg *config.Config, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(cfg.BaseDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("testsupport: create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("testsupport: write %s: %v", path, err)
	}
	return path
}
