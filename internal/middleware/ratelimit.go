package middleware

import (
	"time"

	"github.com/afrydman/AuditTrail/internal/pkg"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RateLimiter throttles requests per client IP using a fixed Redis
// window. Intended for the login endpoint, where the lockout policy
// alone would let an attacker burn a victim's five attempts remotely.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
	logger *zap.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration, prefix string, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: prefix,
		logger: logger,
	}
}

// Limit returns the throttling handler. Redis failures fail open: an
// unavailable limiter must not take authentication down with it.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.client == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := rl.prefix + ":" + c.ClientIP()

		count, err := rl.client.Incr(ctx, key).Result()
		if err != nil {
			rl.logger.Error("rate limiter unavailable, allowing request",
				zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
				rl.logger.Error("failed to set rate limit window",
					zap.String("key", key), zap.Error(err))
			}
		}

		if count > rl.limit {
			rl.logger.Warn("rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
				zap.Int64("count", count))
			pkg.ErrorResponseFromAppError(c, pkg.ErrRateLimitExceeded)
			c.Abort()
			return
		}

		c.Next()
	}
}
