package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 200

// RedisStore keeps entries in Redis under a key prefix.
type RedisStore struct {
	client *redis.Client
	opts   Options

	closeOnce sync.Once
	closeErr  error
}

// NewRedisStore wraps an existing client. The store owns the client and
// closes it on Close.
func NewRedisStore(client *redis.Client, opts ...Option) *RedisStore {
	return &RedisStore{
		client: client,
		opts:   applyOptions(opts...),
	}
}

// Client exposes the underlying go-redis client.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) key(key string) string {
	return s.opts.KeyPrefix + key
}

// Read retrieves a value from the cache.
func (s *RedisStore) Read(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.opts.Logger.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}
	return data, true
}

// Write stores a value with the default TTL.
func (s *RedisStore) Write(ctx context.Context, key string, value []byte) error {
	return s.WriteWithTTL(ctx, key, value, s.opts.TTL)
}

// WriteWithTTL stores a value with a custom TTL. A non-positive TTL keeps
// the key until it is deleted.
func (s *RedisStore) WriteWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

// Delete removes a key from the cache.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// DeleteByPrefix removes all keys matching the prefix.
func (s *RedisStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	pattern := escapeGlob(s.key(prefix)) + "*"
	deleted := 0

	iter := s.client.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	batch := make([]string, 0, scanBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.client.Del(ctx, batch...).Result()
		deleted += int(n)
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= scanBatchSize {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	if err := flush(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// Clear removes every key in the store's namespace. Without a key prefix
// the whole database is flushed.
func (s *RedisStore) Clear(ctx context.Context) error {
	if s.opts.KeyPrefix == "" {
		return s.client.FlushDB(ctx).Err()
	}
	_, err := s.DeleteByPrefix(ctx, "")
	return err
}

// Exist checks if a key exists and is not expired.
func (s *RedisStore) Exist(ctx context.Context, key string) bool {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		s.opts.Logger.Warn("cache exists failed", slog.String("key", key), slog.Any("error", err))
		return false
	}
	return n > 0
}

// Stats counts the keys in the store's namespace. Redis drops expired keys
// itself, so ExpiredEntries is always zero.
func (s *RedisStore) Stats(ctx context.Context) Stats {
	var entries int64
	iter := s.client.Scan(ctx, 0, escapeGlob(s.opts.KeyPrefix)+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		entries++
	}
	if err := iter.Err(); err != nil {
		s.opts.Logger.Warn("cache stats failed", slog.Any("error", err))
	}

	return Stats{
		Entries: entries,
		TTL:     s.opts.TTL,
		Backend: "redis",
	}
}

// Ping checks that Redis answers.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection pool.
func (s *RedisStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ Store = (*RedisStore)(nil)
