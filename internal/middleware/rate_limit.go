package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/config"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
}

// RateLimiter counts requests per user in fixed redis windows. A limiter
// without a redis client lets everything through.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	logger *zap.Logger
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(redisClient *redis.Client, cfg RateLimitConfig, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		config: cfg,
		logger: logger,
	}
}

// NewRecipeCreationRateLimiter limits how many recipes one user publishes per window.
func NewRecipeCreationRateLimiter(redisClient *redis.Client, cfg config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    cfg.Window,
		Limit:     cfg.CreateLimit,
		KeyPrefix: "rate_limit:recipe_creation",
	}, logger)
}

// NewRecipeModificationRateLimiter limits edits, deletes and toggles per recipe.
func NewRecipeModificationRateLimiter(redisClient *redis.Client, cfg config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    cfg.Window,
		Limit:     cfg.ModifyLimit,
		KeyPrefix: "rate_limit:recipe_modification",
	}, logger)
}

func (rl *RateLimiter) enabled() bool {
	return rl != nil && rl.redis != nil
}

// RateLimitMiddleware returns a Gin middleware that enforces rate limiting
// per user. Anonymous requests are left to the access policy.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := IdentityFrom(c)
		if !rl.enabled() || !id.Authenticated {
			c.Next()
			return
		}
		rl.enforce(c, strconv.FormatUint(uint64(id.UserID), 10), "requests")
	}
}

// PerRecipeRateLimitMiddleware creates a middleware for per-recipe rate limiting
func (rl *RateLimiter) PerRecipeRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := IdentityFrom(c)
		if !rl.enabled() || !id.Authenticated {
			c.Next()
			return
		}
		key := fmt.Sprintf("%d:%s", id.UserID, c.Param("id"))
		rl.enforce(c, key, "modifications per recipe")
	}
}

func (rl *RateLimiter) enforce(c *gin.Context, key, unit string) {
	allowed, remaining, resetTime, err := rl.IsAllowed(c.Request.Context(), key)
	if err != nil {
		rl.logger.Warn("rate limit check failed", zap.String("prefix", rl.config.KeyPrefix), zap.Error(err))
		c.Header("X-RateLimit-Error", "rate limit check failed")
		c.Next()
		return
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

	if !allowed {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       fmt.Sprintf("rate limit of %d %s per %v exceeded", rl.config.Limit, unit, rl.config.Window),
			"code":        "throttled",
			"retry_after": int(time.Until(resetTime).Seconds()),
		})
		return
	}

	c.Next()
}

// IsAllowed checks if a request from the given key is allowed
// Returns: allowed, remaining requests, reset time, error
func (rl *RateLimiter) IsAllowed(ctx context.Context, key string) (bool, int, time.Time, error) {
	windowStart := time.Now().Truncate(rl.config.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, key, windowStart.Unix())

	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	count := int(incrCmd.Val())
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.config.Limit, remaining, windowStart.Add(rl.config.Window), nil
}
