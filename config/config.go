package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment constants.
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// Branding defaults used when no override is configured.
const (
	DefaultLogoURL      = "https://preview.tabler.io/static/logo-white.svg"
	DefaultLoginLogoURL = "https://preview.tabler.io/static/logo.svg"
	DefaultFaviconURL   = "https://raw.githubusercontent.com/fastapi-admin/fastapi-admin/dev/images/favicon.png"
)

const devSessionSecret = "dev-secret-do-not-use-in-production-5b91c0e7a2d4f8e3"

// Config holds the runtime configuration of the admin application.
type Config struct {
	// AppName is the application name, used for env var prefix and database filename.
	AppName string `mapstructure:"appname"`

	// Environment: development, production, or test.
	Environment string `mapstructure:"environment"`

	// Port for the HTTP server.
	Port string `mapstructure:"port"`

	Debug bool `mapstructure:"debug"`

	// Logging configuration.
	LogLevel       string `mapstructure:"loglevel"`
	LogsDirectory  string `mapstructure:"logsdirectory"`
	LogsMaxSizeMB  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeDays int    `mapstructure:"logsmaxageindays"`

	// Session configuration. Sessions are stored in the cache service.
	SessionSecret     string `mapstructure:"sessionsecret"`
	SessionTTLSeconds int    `mapstructure:"sessionttlseconds"`

	// DatabaseURL selects the driver by scheme: sqlite://path or postgres://...
	DatabaseURL  string `mapstructure:"databaseurl"`
	MaxOpenConns int    `mapstructure:"databasemaxopenconns"`
	MaxIdleConns int    `mapstructure:"databasemaxidleconns"`

	// DataDirectory holds the default SQLite database file.
	DataDirectory string `mapstructure:"datadirectory"`

	// RedisURL is the cache service URL: redis://, rediss:// or memory://.
	RedisURL string `mapstructure:"redisurl"`

	// BaseDir contains the templates/ and static/ directories.
	BaseDir string `mapstructure:"basedir"`

	// Branding assets shown by the admin module.
	LogoURL      string `mapstructure:"logourl"`
	LoginLogoURL string `mapstructure:"loginlogourl"`
	FaviconURL   string `mapstructure:"faviconurl"`

	envPrefix string
}

// Load creates a new Config for the given app name.
// It reads from environment variables prefixed with the uppercase app name.
// Example: Load("fiberadmin") reads FIBERADMIN_ENV, FIBERADMIN_DATABASE_URL, etc.
func Load(appName string) (*Config, error) {
	v := viper.New()

	appName = strings.ToLower(strings.TrimSpace(appName))
	if appName == "" {
		appName = "app"
	}
	prefix := strings.ToUpper(appName)

	// Read .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	setDefaults(v, appName)

	v.SetEnvPrefix(prefix)
	bindEnvVars(v, prefix)

	cfg := &Config{envPrefix: prefix}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = cfg.defaultDatabaseURL()
	}

	cfg.ensureDirectories()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, appName string) {
	v.SetDefault("appname", appName)
	v.SetDefault("environment", Production)
	v.SetDefault("port", "8000")
	v.SetDefault("debug", false)

	v.SetDefault("loglevel", "error")
	v.SetDefault("logsdirectory", "storage/logs")
	v.SetDefault("logsmaxsizeinmb", 20)
	v.SetDefault("logsmaxbackups", 10)
	v.SetDefault("logsmaxageindays", 30)

	v.SetDefault("sessionttlseconds", 3600)

	v.SetDefault("datadirectory", "storage")
	v.SetDefault("databaseurl", "")
	v.SetDefault("databasemaxopenconns", 0)
	v.SetDefault("databasemaxidleconns", 0)

	v.SetDefault("redisurl", "redis://localhost:6379/0")
	v.SetDefault("basedir", ".")

	v.SetDefault("logourl", DefaultLogoURL)
	v.SetDefault("loginlogourl", DefaultLoginLogoURL)
	v.SetDefault("faviconurl", DefaultFaviconURL)
}

func bindEnvVars(v *viper.Viper, prefix string) {
	// {PREFIX}_ENV, {PREFIX}_PORT, etc.
	v.BindEnv("environment", prefix+"_ENV")
	v.BindEnv("port", prefix+"_PORT")
	v.BindEnv("debug", prefix+"_DEBUG")
	v.BindEnv("loglevel", prefix+"_LOG_LEVEL")
	v.BindEnv("logsdirectory", prefix+"_LOGS_DIR")
	v.BindEnv("sessionsecret", prefix+"_SESSION_SECRET")
	v.BindEnv("sessionttlseconds", prefix+"_SESSION_TTL_SECONDS")
	v.BindEnv("databaseurl", prefix+"_DATABASE_URL", "DATABASE_URL")
	v.BindEnv("databasemaxopenconns", prefix+"_DATABASE_MAX_OPEN_CONNS")
	v.BindEnv("databasemaxidleconns", prefix+"_DATABASE_MAX_IDLE_CONNS")
	v.BindEnv("datadirectory", prefix+"_DATA_DIR")
	v.BindEnv("redisurl", prefix+"_REDIS_URL", "REDIS_URL")
	v.BindEnv("basedir", prefix+"_BASE_DIR")
	v.BindEnv("logourl", prefix+"_LOGO_URL")
	v.BindEnv("loginlogourl", prefix+"_LOGIN_LOGO_URL")
	v.BindEnv("faviconurl", prefix+"_FAVICON_URL")
}

// Validate checks the configuration and fills development fallbacks.
func (c *Config) Validate() error {
	var problems []string

	// Adjust log level for development
	if c.LogLevel == "" || c.LogLevel == "error" {
		if c.IsDevelopment() || c.IsTest() {
			c.LogLevel = "info"
		}
	}

	switch c.Environment {
	case Development, Production, Test:
	default:
		problems = append(problems, fmt.Sprintf("invalid %s_ENV value %q", c.envPrefix, c.Environment))
	}

	if c.IsProduction() {
		if c.SessionSecret == "" {
			problems = append(problems, fmt.Sprintf("%s_SESSION_SECRET is REQUIRED in production", c.envPrefix))
		}
	} else if c.SessionSecret == "" {
		c.SessionSecret = devSessionSecret
		if c.IsDevelopment() {
			log.Printf("info: Using default development secret (set %s_SESSION_SECRET for custom value)", c.envPrefix)
		}
	}

	if c.DatabaseURL == "" {
		problems = append(problems, fmt.Sprintf("%s_DATABASE_URL is required", c.envPrefix))
	}
	if c.RedisURL == "" {
		problems = append(problems, fmt.Sprintf("%s_REDIS_URL is required", c.envPrefix))
	}
	if c.SessionTTLSeconds <= 0 {
		problems = append(problems, fmt.Sprintf("%s_SESSION_TTL_SECONDS must be positive", c.envPrefix))
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// defaultDatabaseURL points at storage/<app>.<env>.db, or an in-memory
// database in the test environment.
func (c *Config) defaultDatabaseURL() string {
	if c.IsTest() {
		return "sqlite://:memory:"
	}
	filename := fmt.Sprintf("%s.%s.db", c.AppName, c.Environment)
	return "sqlite://" + filepath.Join(c.DataDirectory, filename)
}

func (c *Config) ensureDirectories() {
	dirs := []string{c.DataDirectory}
	if c.IsProduction() {
		dirs = append(dirs, c.LogsDirectory)
	}
	for _, dir := range dirs {
		if dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Printf("config: failed to create directory %q: %v", dir, err)
			}
		}
	}
}

// Environment checks.

func (c *Config) IsDevelopment() bool { return c.Environment == Development }
func (c *Config) IsProduction() bool  { return c.Environment == Production }
func (c *Config) IsTest() bool        { return c.Environment == Test }

func (c *Config) GetPort() string { return c.Port }

// TemplatesDirectory is where operator templates override the admin defaults.
func (c *Config) TemplatesDirectory() string { return filepath.Join(c.BaseDir, "templates") }

// StaticDirectory is served under /static.
func (c *Config) StaticDirectory() string { return filepath.Join(c.BaseDir, "static") }

// LogConfigProvider implementation.

func (c *Config) GetLogLevel() string     { return c.LogLevel }
func (c *Config) GetLogDirectory() string { return c.LogsDirectory }
func (c *Config) GetLogMaxSizeMB() int    { return c.LogsMaxSizeMB }
func (c *Config) GetLogMaxBackups() int   { return c.LogsMaxBackups }
func (c *Config) GetLogMaxAgeDays() int   { return c.LogsMaxAgeDays }
func (c *Config) GetAppName() string      { return c.AppName }

// Database configuration.

func (c *Config) GetMaxOpenConns() int {
	if c.MaxOpenConns > 0 {
		return c.MaxOpenConns
	}
	if c.IsProduction() {
		return 10
	}
	return 1
}

func (c *Config) GetMaxIdleConns() int {
	if c.MaxIdleConns > 0 {
		return c.MaxIdleConns
	}
	if c.IsProduction() {
		return 5
	}
	return 1
}

// SessionTTL returns how long an admin session stays valid.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}
