package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/utils"
)

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	// Max requests per Duration window. Default: 50.
	Max int

	// Duration of the window. Default: one second.
	Duration time.Duration

	// Skip bypasses the limiter when it returns true.
	Skip func(*fiber.Ctx) bool

	// Storage shares counters between instances. nil keeps them in memory.
	Storage fiber.Storage

	// SkipSuccessfulRequests stops counting responses below 400.
	SkipSuccessfulRequests bool

	// KeyGenerator identifies the client. Default: the client IP.
	KeyGenerator func(*fiber.Ctx) string

	// LimitReached replaces the default JSON 429 reply.
	LimitReached fiber.Handler
}

// RateLimiterOption defines a function to modify RateLimiterConfig.
type RateLimiterOption func(*RateLimiterConfig)

// WithMax sets the maximum number of requests allowed within the window.
func WithMax(max int) RateLimiterOption {
	return func(cfg *RateLimiterConfig) { cfg.Max = max }
}

// WithDuration sets the window length.
func WithDuration(d time.Duration) RateLimiterOption {
	return func(cfg *RateLimiterConfig) { cfg.Duration = d }
}

// WithSkip configures a predicate to skip rate limiting when it returns true.
func WithSkip(skip func(*fiber.Ctx) bool) RateLimiterOption {
	return func(cfg *RateLimiterConfig) { cfg.Skip = skip }
}

// WithStorage keeps counters in storage, e.g. cache.NewFiberStorage(store, "limiter:").
func WithStorage(storage fiber.Storage) RateLimiterOption {
	return func(cfg *RateLimiterConfig) { cfg.Storage = storage }
}

// WithSkipSuccessfulRequests counts only responses with status 400 or above.
func WithSkipSuccessfulRequests() RateLimiterOption {
	return func(cfg *RateLimiterConfig) { cfg.SkipSuccessfulRequests = true }
}

// WithKeyGenerator sets how clients are told apart.
func WithKeyGenerator(fn func(*fiber.Ctx) string) RateLimiterOption {
	return func(cfg *RateLimiterConfig) { cfg.KeyGenerator = fn }
}

// WithLimitReached sets the handler called once the limit is exceeded.
// The Retry-After and X-RateLimit headers are already set when it runs.
func WithLimitReached(handler fiber.Handler) RateLimiterOption {
	return func(cfg *RateLimiterConfig) { cfg.LimitReached = handler }
}

// RateLimiter limits requests per client within a fixed window.
//
//	RateLimiter(WithMax(5), WithDuration(time.Minute)) // 5 req/min per IP
func RateLimiter(options ...RateLimiterOption) fiber.Handler {
	cfg := RateLimiterConfig{}
	for _, option := range options {
		option(&cfg)
	}
	if cfg.Max <= 0 {
		cfg.Max = 50
	}
	if cfg.Duration <= 0 {
		cfg.Duration = time.Second
	}
	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = func(c *fiber.Ctx) string { return c.IP() }
	}

	retryAfter := int(cfg.Duration.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	return limiter.New(limiter.Config{
		Max:        cfg.Max,
		Expiration: cfg.Duration,
		Storage:    cfg.Storage,

		SkipSuccessfulRequests: cfg.SkipSuccessfulRequests,
		// Keys outlive the pooled context.
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.CopyString(cfg.KeyGenerator(c))
		},
		Next: cfg.Skip,
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			c.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			c.Set("X-RateLimit-Remaining", "0")

			if cfg.LimitReached != nil {
				return cfg.LimitReached(c)
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too Many Requests",
				"message":     "Rate limit exceeded. Please try again later.",
				"retry_after": retryAfter,
			})
		},
	})
}
