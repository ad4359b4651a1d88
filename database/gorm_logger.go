package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormLogger routes GORM logs through slog.
type gormLogger struct {
	logger        *slog.Logger
	logLevel      logger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger creates a GORM logger backed by slog.
// A zero slowThreshold defaults to 200ms.
func NewGormLogger(l *slog.Logger, slowThreshold time.Duration) logger.Interface {
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}
	return &gormLogger{
		logger:        l,
		logLevel:      logger.Warn,
		slowThreshold: slowThreshold,
	}
}

func (gl *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *gl
	newLogger.logLevel = level
	return &newLogger
}

func (gl *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if gl.logLevel >= logger.Info {
		gl.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (gl *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if gl.logLevel >= logger.Warn {
		gl.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (gl *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if gl.logLevel >= logger.Error {
		gl.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Trace logs SQL queries with execution time.
func (gl *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if gl.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && gl.logLevel >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		gl.logger.ErrorContext(ctx, "database query failed",
			slog.Duration("duration", elapsed),
			slog.Int64("rows", rows),
			slog.String("sql", sql),
			slog.Any("error", err),
		)
	case elapsed > gl.slowThreshold && gl.logLevel >= logger.Warn:
		sql, rows := fc()
		gl.logger.WarnContext(ctx, "slow sql query",
			slog.Duration("duration", elapsed),
			slog.Int64("rows", rows),
			slog.String("sql", sql),
		)
	case gl.logLevel >= logger.Info:
		sql, rows := fc()
		gl.logger.DebugContext(ctx, "sql query executed",
			slog.Duration("duration", elapsed),
			slog.Int64("rows", rows),
			slog.String("sql", sql),
		)
	}
}
