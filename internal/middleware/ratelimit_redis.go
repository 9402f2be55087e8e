package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
)

// RateLimiter is a fixed-window counter shared through Redis, so every
// instance behind a load balancer sees the same budget.
type RateLimiter struct {
	Redis  *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
	Log    *zap.Logger
}

func NewRateLimiter(r *redis.Client, prefix string, limit int, window time.Duration, log *zap.Logger) *RateLimiter {
	return &RateLimiter{Redis: r, Prefix: prefix, Limit: limit, Window: window, Log: log}
}

// MiddlewareByKey counts requests per keyFunc(c). Without Redis it falls back
// to fiber's in-process limiter with the same budget.
func (r *RateLimiter) MiddlewareByKey(keyFunc func(c *fiber.Ctx) string) fiber.Handler {
	if r.Redis == nil {
		return limiter.New(limiter.Config{
			Max:          r.Limit,
			Expiration:   r.Window,
			KeyGenerator: keyFunc,
			LimitReached: func(*fiber.Ctx) error { return apperrors.ErrRateLimited },
		})
	}
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		redisKey := fmt.Sprintf("%s:ratelimit:%s", r.Prefix, keyFunc(c))

		pipe := r.Redis.TxPipeline()
		incr := pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, r.Window)
		if _, err := pipe.Exec(ctx); err != nil {
			// fail open
			r.Log.Warn("rate limiter unavailable", zap.String("key", redisKey), zap.Error(err))
			return c.Next()
		}
		if incr.Val() > int64(r.Limit) {
			return apperrors.ErrRateLimited
		}
		return c.Next()
	}
}

// ByUser keys on the authenticated user, falling back to the client IP.
func ByUser(c *fiber.Ctx) string {
	if id := UserID(c); id != "" {
		return "user:" + id
	}
	return "ip:" + c.IP()
}
