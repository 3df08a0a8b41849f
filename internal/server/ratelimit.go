package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"taskboard/internal/logger"
	"taskboard/internal/metrics"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window limiter keyed by client IP and backed by Redis INCR/EXPIRE.
// A nil client, or any Redis error, lets the request through.
type RateLimiter struct {
	client *redis.Client
}

// NewRedisRateLimiter connects to addr. When addr is empty or the ping fails the limiter
// is returned disabled so the API stays available.
func NewRedisRateLimiter(addr, password string, db int) *RateLimiter {
	if addr == "" {
		return &RateLimiter{}
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, rate limiting disabled", "addr", addr, "error", err)
		_ = client.Close()
		return &RateLimiter{}
	}
	logger.Info("redis rate limiter connected", "addr", addr)
	return &RateLimiter{client: client}
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func (l *RateLimiter) Enabled() bool {
	return l != nil && l.client != nil
}

func (l *RateLimiter) Close() error {
	if !l.Enabled() {
		return nil
	}
	return l.client.Close()
}

// Limit allows maxRequests per window for each client IP on the route it is mounted on.
// Key format: rl:<route>:<window_seconds>:<ip>.
func (l *RateLimiter) Limit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !l.Enabled() || maxRequests <= 0 {
			ctx.Next()
			return
		}

		route := ctx.FullPath()
		key := "rl:" + route + ":" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + ctx.ClientIP()
		rctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
		defer cancel()

		val, err := l.client.Incr(rctx, key).Result()
		if err != nil {
			logger.Warn("rate limiter redis error", "key", key, "error", err)
			ctx.Header("X-RateLimit-Error", "redis-error")
			ctx.Next()
			return
		}
		if val == 1 {
			if err := l.client.Expire(rctx, key, window).Err(); err != nil {
				logger.Warn("rate limiter expire failed", "key", key, "error", err)
			}
		}

		metrics.RLRequests.WithLabelValues(route).Inc()
		remaining := int64(maxRequests) - val
		if remaining < 0 {
			remaining = 0
		}
		ctx.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		ctx.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if val > int64(maxRequests) {
			metrics.RLBlocked.WithLabelValues(route).Inc()
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		ctx.Next()
	}
}
