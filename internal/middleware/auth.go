package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gistboard/core/internal/pkg/jwt"
	"github.com/gistboard/core/internal/pkg/response"
)

const ContextKeyAdmin = "admin_user"

// Auth returns a middleware that enforces an admin JWT session. The sweeper,
// archive and audit surfaces sit behind it.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := jwt.Parse(extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyAdmin, claims.Subject)
		c.Next()
	}
}

// OptionalAuth marks the request as authenticated if a valid token is
// present, but does not block it.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := jwt.Parse(extractToken(c)); err == nil {
			c.Set(ContextKeyAdmin, claims.Subject)
		}
		c.Next()
	}
}

// IsAuthenticated reports whether the request carries a valid admin session.
func IsAuthenticated(c *gin.Context) bool {
	_, ok := c.Get(ContextKeyAdmin)
	return ok
}

// AdminName returns the authenticated admin username, or "" if anonymous.
func AdminName(c *gin.Context) string {
	if v, ok := c.Get(ContextKeyAdmin); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if header != "" {
		return header
	}
	return c.Query("token")
}
