package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"taskboard/internal/metrics"

	"github.com/gin-gonic/gin"
)

const callerKey = "callerID"

// RequestLogger logs every request once it completes and counts it by route and status.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := ctx.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(ctx.Request.Method, route, strconv.Itoa(status)).Inc()

		attrs := []any{
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"status", status,
			"ip", ctx.ClientIP(),
			"latency", time.Since(start),
		}
		if len(ctx.Errors) > 0 {
			attrs = append(attrs, "errors", ctx.Errors.String())
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request", attrs...)
		case status >= http.StatusBadRequest:
			log.Warn("request", attrs...)
		default:
			log.Info("request", attrs...)
		}
	}
}

// RequireAuth rejects requests without a valid session token and stores the caller id.
func RequireAuth(tokens *TokenManager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw := extractToken(ctx)
		if raw == "" {
			abortWithError(ctx, errNoToken)
			return
		}
		userID, err := tokens.Parse(raw)
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		ctx.Set(callerKey, userID)
		ctx.Next()
	}
}

func callerID(ctx *gin.Context) string {
	return ctx.GetString(callerKey)
}
