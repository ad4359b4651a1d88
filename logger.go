package fiberadmin

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig configures the logger.
type LogConfig struct {
	// Level is the minimum log level. Defaults based on environment:
	// - Development: "info"
	// - Test: "info"
	// - Production: "error"
	// Can be overridden via LOG_LEVEL env var or this field.
	Level string

	// Directory for log files. Only used in production.
	// Defaults to "logs" in the current directory.
	Directory string

	// MaxSizeMB is the max size in megabytes before rotation.
	// Defaults to 100.
	MaxSizeMB int

	// MaxBackups is the max number of old log files to keep.
	// Defaults to 3.
	MaxBackups int

	// MaxAgeDays is the max age in days before a log file is deleted.
	// Defaults to 28.
	MaxAgeDays int

	// AppName is used in the log filename. Defaults to "app".
	AppName string
}

// LogConfigProvider allows configuration objects to provide log settings directly.
// config.Config implements it.
type LogConfigProvider interface {
	GetLogLevel() string
	GetLogDirectory() string
	GetLogMaxSizeMB() int
	GetLogMaxBackups() int
	GetLogMaxAgeDays() int
	GetAppName() string
}

// LogConfigFromProvider creates a LogConfig from a LogConfigProvider.
func LogConfigFromProvider(p LogConfigProvider) *LogConfig {
	return &LogConfig{
		Level:      p.GetLogLevel(),
		Directory:  p.GetLogDirectory(),
		MaxSizeMB:  p.GetLogMaxSizeMB(),
		MaxBackups: p.GetLogMaxBackups(),
		MaxAgeDays: p.GetLogMaxAgeDays(),
		AppName:    p.GetAppName(),
	}
}

// NewLogger creates a configured slog.Logger based on the environment.
//
// If cfg implements LogConfigProvider, log settings are extracted automatically.
//
// Development and Test log colored text to stdout. Production logs JSON to
// stdout and to a lumberjack-rotated file.
func NewLogger(cfg RuntimeConfig, logCfg *LogConfig) *slog.Logger {
	if logCfg == nil {
		if provider, ok := cfg.(LogConfigProvider); ok {
			logCfg = LogConfigFromProvider(provider)
		} else {
			logCfg = &LogConfig{}
		}
	}

	level := resolveLogLevel(cfg, logCfg.Level)

	if cfg.IsDevelopment() || cfg.IsTest() {
		return newDevLogger(os.Stdout, level)
	}
	return newProdLogger(level, logCfg)
}

// resolveLogLevel determines the log level from config, env, or defaults.
func resolveLogLevel(cfg RuntimeConfig, configLevel string) slog.Level {
	levelStr := configLevel

	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		levelStr = envLevel
	}

	if levelStr == "" {
		if cfg.IsDevelopment() || cfg.IsTest() {
			levelStr = "info"
		} else {
			levelStr = "error"
		}
	}

	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newDevLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}
	return slog.New(newColorHandler(w, opts))
}

// newProdLogger creates a JSON logger that writes to stdout and file.
func newProdLogger(level slog.Level, logCfg *LogConfig) *slog.Logger {
	appName := logCfg.AppName
	if appName == "" {
		appName = "app"
	}

	dir := logCfg.Directory
	if dir == "" {
		dir = "logs"
	}

	maxSize := logCfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}

	maxBackups := logCfg.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 3
	}

	maxAge := logCfg.MaxAgeDays
	if maxAge <= 0 {
		maxAge = 28
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		// Fall back to stdout only if we can't create the directory
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, appName+".log"),
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
		Compress:   true,
	}

	return slog.New(slog.NewJSONHandler(io.MultiWriter(os.Stdout, rotator), opts))
}

// componentKey is rendered as a [tag] by the development handler. The
// admin module, database manager and cache client set it.
const componentKey = "component"

// colorHandler writes one colored line per record:
//
//	15:04:05 INFO [admin] message key=value
type colorHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Level
	component string
	attrs     []slog.Attr
	group     string
}

func newColorHandler(w io.Writer, opts *slog.HandlerOptions) *colorHandler {
	level := slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level.Level()
	}
	return &colorHandler{mu: &sync.Mutex{}, w: w, level: level}
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

func levelColor(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return colorRed
	case l >= slog.LevelWarn:
		return colorYellow
	case l >= slog.LevelInfo:
		return colorBlue
	default:
		return colorGray
	}
}

func (h *colorHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf strings.Builder
	buf.WriteString(colorGray + r.Time.Format("15:04:05") + colorReset + " ")
	buf.WriteString(levelColor(r.Level) + r.Level.String() + colorReset + " ")

	component := h.component
	var attrs []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == componentKey && h.group == "" {
			component = a.Value.String()
			return true
		}
		attrs = append(attrs, a)
		return true
	})
	if component != "" {
		buf.WriteString(colorCyan + "[" + component + "]" + colorReset + " ")
	}
	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		h.writeAttr(&buf, "", a)
	}
	for _, a := range attrs {
		h.writeAttr(&buf, h.group, a)
	}
	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, buf.String())
	return err
}

func (h *colorHandler) writeAttr(buf *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			h.writeAttr(buf, key, ga)
		}
		return
	}
	buf.WriteString(" " + colorGray + key + "=" + colorReset + a.Value.String())
}

func (h *colorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if a.Key == componentKey && h.group == "" {
			next.component = a.Value.String()
			continue
		}
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	next.group = name
	return &next
}
