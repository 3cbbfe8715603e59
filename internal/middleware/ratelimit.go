package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
)

// redisTimeout bounds the limiter's Redis round trips so a Redis outage
// fails open quickly instead of stalling every request.
const redisTimeout = 250 * time.Millisecond

// RateLimiter is a Redis fixed-window limiter shared by all replicas.
// Authenticated callers are keyed by user id, anonymous ones by IP.
type RateLimiter struct {
	rdb     *redis.Client
	maxReqs int
	window  time.Duration
	log     *slog.Logger
}

// NewRateLimiter creates a rate limiter.
func NewRateLimiter(rdb *redis.Client, maxReqs int, window time.Duration, log *slog.Logger) *RateLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &RateLimiter{rdb: rdb, maxReqs: maxReqs, window: window, log: log}
}

// Handler returns a Fiber middleware handler for rate limiting. It must
// run after Auth so callers can be told apart.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		if rl.rdb == nil || rl.maxReqs <= 0 {
			return c.Next()
		}
		key := "catalog:ratelimit:ip:" + c.IP()
		if caller, ok := CallerFrom(c); ok {
			key = "catalog:ratelimit:user:" + strconv.Itoa(caller.UserID)
		}
		ctx, cancel := context.WithTimeout(c.Context(), redisTimeout)
		defer cancel()

		count, err := rl.rdb.Incr(ctx, key).Result()
		if err != nil {
			// fail open
			rl.log.WarnContext(ctx, "rate limiter unavailable", "error", err)
			return c.Next()
		}
		if count == 1 {
			rl.rdb.Expire(ctx, key, rl.window)
		}
		ttl, _ := rl.rdb.TTL(ctx, key).Result()

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.maxReqs))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", max(0, int64(rl.maxReqs)-count)))
		c.Set("X-RateLimit-Reset", fmt.Sprintf("%d", int(ttl.Seconds())))

		if int(count) > rl.maxReqs {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate limit exceeded",
				"retry_after": int(ttl.Seconds()),
			})
		}
		return c.Next()
	}
}
