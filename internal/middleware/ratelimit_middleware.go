package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"newsbrief/internal/security"
)

// RateLimit enforces a fixed-window limit per identifier and route. The
// identifier is the authenticated user when a session resolved, otherwise
// the client IP.
func RateLimit(limiter *security.Limiter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := c.ClientIP()
		if userID, exists := c.Get("user_id"); exists {
			identifier = fmt.Sprintf("user:%v", userID)
		}
		endpoint := c.Request.Method + ":" + c.FullPath()

		decision, err := limiter.Allow(identifier, endpoint, limit, window)
		if err != nil {
			// A limiter failure should not take the route down.
			c.Next()
			return
		}

		if !decision.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", decision.RetryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": decision.RetryAfter,
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(window).Unix()))

		c.Next()
	}
}
