package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// ContextKeyToken is the context key for the raw host bearer token.
	ContextKeyToken = "host_token"
)

// OptionalAuthMiddleware extracts the bearer token from the Authorization
// header when present. Identity resolution is fail-soft by design: a missing
// or malformed header means the visitor is anonymous, never a 401.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				c.Set(ContextKeyToken, parts[1])
			}
		}
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}

// RateLimitMiddleware rejects requests from clients that have exhausted
// their own token budget.
func RateLimitMiddleware(limiter *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// tokenFrom returns the bearer token stashed by OptionalAuthMiddleware, or
// empty when the visitor is anonymous.
func tokenFrom(c *gin.Context) string {
	if v, ok := c.Get(ContextKeyToken); ok {
		if token, ok := v.(string); ok {
			return token
		}
	}
	return ""
}
