package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitMiddleware counts requests per authenticated user in fixed
// windows, across all routes. Mount it after AuthMiddleware; unauthenticated
// requests fall back to the client IP. Redis errors let the request through.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limit <= 0 {
			return c.Next()
		}
		key := rateLimitKey(c)

		ctx := c.UserContext()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			return c.Next()
		}

		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(window.Seconds())))
			return deny(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		}

		return c.Next()
	}
}

func rateLimitKey(c *fiber.Ctx) string {
	if id := GetUserID(c); id != uuid.Nil {
		return "rl:user:" + id.String()
	}
	return "rl:ip:" + c.IP()
}
