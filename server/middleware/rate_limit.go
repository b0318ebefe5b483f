package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	// DefaultRatePerSecond and DefaultBurst apply when the profile leaves them unset.
	DefaultRatePerSecond = 10
	DefaultBurst         = 20

	// maxTrackedKeys bounds the number of per-key token buckets kept in memory.
	maxTrackedKeys = 10000
)

// Limiter decides whether one more request for key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimiter is an in-process token bucket per key. Least recently seen keys are
// evicted once maxTrackedKeys is reached.
type RateLimiter struct {
	mu     sync.Mutex
	limit  rate.Limit
	burst  int
	limits *lru.Cache[string, *rate.Limiter]
}

// NewRateLimiter creates a limiter allowing perSecond requests per key with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = DefaultRatePerSecond
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	// lru.New only fails for a non-positive size.
	limits, _ := lru.New[string, *rate.Limiter](maxTrackedKeys)
	return &RateLimiter{
		limit:  rate.Limit(perSecond),
		burst:  burst,
		limits: limits,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits.Get(key); ok {
		return limiter
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limits.Add(key, limiter)
	return limiter
}

// Allow reports whether a request is allowed for the given key.
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	return rl.getLimiter(key).Allow(), nil
}

// RedisRateLimiter is a fixed-window limiter shared by every server instance.
type RedisRateLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
}

var redisFixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// NewRedisRateLimiter allows limit requests per key in each window.
func NewRedisRateLimiter(rdb redis.Scripter, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if limit <= 0 {
		limit = DefaultBurst
	}
	if window <= 0 {
		window = time.Second
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "calsense:rl"
	}
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix}
}

// Allow increments the key's counter for the current window.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	res, err := redisFixedWindowScript.Run(ctx, rl.rdb, []string{rl.prefix + ":" + key}, rl.window.Milliseconds()).Result()
	if err != nil {
		return false, err
	}
	count, err := scriptCount(res)
	if err != nil {
		return false, err
	}
	return count <= int64(rl.limit), nil
}

func scriptCount(res any) (int64, error) {
	switch v := res.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected redis script result type %T", res)
	}
}

// KeyFunc extracts the rate-limit key of a request.
type KeyFunc func(c echo.Context) string

// UserOrIPKey keys requests by the :user path parameter, falling back to the client IP.
func UserOrIPKey(c echo.Context) string {
	if user := c.Param("user"); user != "" {
		return "user:" + user
	}
	return "ip:" + c.RealIP()
}

// RateLimit rejects requests over the limiter's budget with 429. When the limiter itself
// fails, failOpen lets the request through; otherwise it answers 503.
func RateLimit(limiter Limiter, key KeyFunc, logger *slog.Logger, failOpen bool) echo.MiddlewareFunc {
	if key == nil {
		key = UserOrIPKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			allowed, err := limiter.Allow(ctx, key(c))
			if err != nil {
				logger.WarnContext(ctx, "rate limiter error", slog.String("error", err.Error()))
				if failOpen {
					return next(c)
				}
				return echo.NewHTTPError(http.StatusServiceUnavailable, "rate limiter unavailable")
			}
			if !allowed {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
