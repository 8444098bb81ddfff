package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// FailPolicy defines the behavior when the rate limit store (Redis) returns an error.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis fails.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis fails.
	FailClosed
)

// localLimiters backs rate limiting when no Redis client is configured. It is
// per-process, so limits are only approximate across replicas.
var localLimiters = &limiterSet{entries: make(map[string]*localEntry)}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	sweeps  int
}

func (s *limiterSet) allow(key string, limit int, window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, ok := s.entries[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)}
		s.entries[key] = e
	}
	e.lastSeen = now

	s.sweeps++
	if s.sweeps%1024 == 0 {
		for k, v := range s.entries {
			if now.Sub(v.lastSeen) > time.Hour {
				delete(s.entries, k)
			}
		}
	}

	return e.limiter.AllowN(now, 1)
}

func (s *limiterSet) reset() {
	s.mu.Lock()
	s.entries = make(map[string]*localEntry)
	s.mu.Unlock()
}

var rateLimitEnv atomic.Value

// SetRateLimitEnvironment records the configured app environment. Limits are
// skipped only for "test", "development" and "stress"; anything else,
// including an unset environment, enforces them.
func SetRateLimitEnvironment(env string) {
	rateLimitEnv.Store(env)
}

func rateLimitBypassed() bool {
	env, _ := rateLimitEnv.Load().(string)
	switch env {
	case "test", "development", "stress":
		return true
	}
	return false
}

// CheckRateLimit reports whether id may perform another request against resource.
// Redis keeps a fixed window per key; without Redis a local token bucket is used.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rateLimitBypassed() {
		return true, nil
	}
	if limit <= 0 {
		return false, nil
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	if rdb == nil {
		return localLimiters.allow(key, limit, window), nil
	}

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		rdb.Expire(ctx, key, window)
	}
	return cnt <= int64(limit), nil
}

// RateLimit returns a Fiber middleware enforcing `limit` requests per `window`.
// It keys by authenticated userID (if set in c.Locals("userID")) otherwise by remote IP.
// It defaults to FailOpen policy.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy returns a Fiber middleware enforcing `limit` requests per `window` with a specific failure policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id string
		if uid := c.Locals("userID"); uid != nil {
			id = fmt.Sprintf("user:%v", uid)
		} else {
			id = fmt.Sprintf("ip:%s", c.IP())
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, resource, id, limit, window)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing closed",
					slog.String("resource", resource), slog.String("error", err.Error()))
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		if !allowed {
			RateLimited.WithLabelValues(resource).Inc()
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
