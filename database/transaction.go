package database

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"gorm.io/gorm"
)

// TransactionConfig controls how PerformWrite retries busy errors.
type TransactionConfig struct {
	// MaxRetries is the maximum number of attempts on busy errors.
	MaxRetries int

	// BaseDelay is the initial delay before retry.
	BaseDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
}

// DefaultTransactionConfig returns sensible defaults for SQLite transactions.
func DefaultTransactionConfig() TransactionConfig {
	return TransactionConfig{
		MaxRetries: 10,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// PerformWrite runs f inside a transaction, committing on success and
// rolling back on error. SQLite "database is locked" errors are retried with
// exponential backoff; any other error is returned immediately.
func PerformWrite(logger *slog.Logger, db *gorm.DB, f func(tx *gorm.DB) error) error {
	return PerformWriteWithConfig(logger, db, f, DefaultTransactionConfig())
}

// PerformWriteWithConfig is PerformWrite with custom retry configuration.
func PerformWriteWithConfig(logger *slog.Logger, db *gorm.DB, f func(tx *gorm.DB) error, cfg TransactionConfig) error {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}

	var err error
	for i := 0; i < cfg.MaxRetries; i++ {
		if i > 0 {
			delay := calculateRetryDelay(i, cfg.BaseDelay, cfg.MaxDelay)
			logger.Info("retrying transaction",
				slog.Int("attempt", i+1),
				slog.Duration("delay", delay),
				slog.Any("error", err))
			time.Sleep(delay)
		}

		tx := db.Session(&gorm.Session{SkipDefaultTransaction: true}).Begin()
		if tx.Error != nil {
			return fmt.Errorf("database: begin transaction: %w", tx.Error)
		}

		if err = f(tx); err != nil {
			tx.Rollback()
			if isBusyError(err) {
				continue
			}
			return err
		}

		if err = tx.Commit().Error; err != nil {
			tx.Rollback()
			if isBusyError(err) {
				continue
			}
			return fmt.Errorf("database: commit transaction: %w", err)
		}

		return nil
	}
	return fmt.Errorf("database: transaction failed after %d attempts: %w", cfg.MaxRetries, err)
}

// calculateRetryDelay calculates exponential backoff with 20% jitter.
func calculateRetryDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt-1)))
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	jitter := time.Duration(rand.Float64() * 0.2 * float64(delay))
	return delay + jitter
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database is busy") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
