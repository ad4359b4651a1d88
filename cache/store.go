// Package cache provides the key/value store used for admin sessions and
// login throttling. Stores are built from a URL with Open: redis:// and
// rediss:// go to Redis, memory:// keeps entries in-process.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Store is the cache interface implemented by RedisStore and MemoryStore.
type Store interface {
	// Read retrieves a value from the cache. Returns nil, false if not found or expired.
	Read(ctx context.Context, key string) ([]byte, bool)

	// Write stores a value in the cache with the default TTL.
	Write(ctx context.Context, key string, value []byte) error

	// WriteWithTTL stores a value with a custom TTL.
	WriteWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) error

	// DeleteByPrefix removes all keys matching the prefix.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)

	// Clear removes all entries from the cache.
	Clear(ctx context.Context) error

	// Exist checks if a key exists and is not expired.
	Exist(ctx context.Context, key string) bool

	// Stats returns cache statistics.
	Stats(ctx context.Context) Stats

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection. Safe to call more than once.
	Close() error
}

// Stats contains cache statistics.
type Stats struct {
	Entries        int64         `json:"entries"`
	ExpiredEntries int64         `json:"expired_entries"`
	MaxEntries     int64         `json:"max_entries,omitempty"`
	TTL            time.Duration `json:"ttl"`
	Backend        string        `json:"backend"`
}

// Options configures cache behavior.
type Options struct {
	// TTL is the default time-to-live for cache entries. Default: 1 hour.
	TTL time.Duration

	// KeyPrefix namespaces keys in shared backends. Default: "fiberadmin:".
	KeyPrefix string

	// MaxEntries limits the number of entries. 0 means unlimited.
	// When exceeded, oldest entries are evicted (FIFO). Only the memory
	// store enforces it.
	MaxEntries int64

	// CleanupInterval is how often expired entries are removed from memory.
	// Default: 10 minutes. Set to 0 to disable background cleanup.
	CleanupInterval time.Duration

	// CleanupBatchSize is how many entries to delete per cleanup cycle. Default: 100.
	CleanupBatchSize int

	// Logger receives backend errors that Read and Exist cannot return.
	Logger *slog.Logger
}

// DefaultOptions returns the defaults used by Open.
func DefaultOptions() Options {
	return Options{
		TTL:              time.Hour,
		KeyPrefix:        "fiberadmin:",
		MaxEntries:       0,
		CleanupInterval:  10 * time.Minute,
		CleanupBatchSize: 100,
		Logger:           slog.Default(),
	}
}

// Option is a functional option for configuring cache behavior.
type Option func(*Options)

// WithTTL sets the default TTL for cache entries.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.TTL = ttl
	}
}

// WithKeyPrefix sets the namespace prepended to every key.
func WithKeyPrefix(prefix string) Option {
	return func(o *Options) {
		o.KeyPrefix = prefix
	}
}

// WithMaxEntries sets the maximum number of cache entries.
func WithMaxEntries(max int64) Option {
	return func(o *Options) {
		o.MaxEntries = max
	}
}

// WithCleanupInterval sets how often expired entries are cleaned up.
func WithCleanupInterval(interval time.Duration) Option {
	return func(o *Options) {
		o.CleanupInterval = interval
	}
}

// WithCleanupBatchSize sets how many entries to clean per cycle.
func WithCleanupBatchSize(size int) Option {
	return func(o *Options) {
		o.CleanupBatchSize = size
	}
}

// WithLogger sets the logger used for backend errors.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// applyOptions applies functional options to the default options.
func applyOptions(opts ...Option) Options {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
