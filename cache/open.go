package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrUnsupportedScheme is returned by Open for URLs it cannot serve.
var ErrUnsupportedScheme = errors.New("cache: unsupported URL scheme")

// Open builds a Store for rawURL and verifies the backend is reachable.
//
//	redis://[:password@]host:port/db
//	rediss://...        (TLS)
//	memory://
func Open(ctx context.Context, rawURL string, opts ...Option) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "redis", "rediss":
		redisOpts, err := redis.ParseURL(rawURL)
		if err != nil {
			return nil, fmt.Errorf("cache: parse redis url: %w", err)
		}
		store := NewRedisStore(redis.NewClient(redisOpts), opts...)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("cache: ping %s: %w", u.Host, err)
		}
		return store, nil
	case "memory":
		return NewMemoryStore(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}
