package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	pkgAuth "github.com/opendigger/pointgate/internal/pkg/auth"
)

// CallerContextKey is a gin context key for the authenticated service name.
const CallerContextKey = "caller"

// ServiceAuth ensures the request carries a valid collaborator token before
// accessing handler.
func ServiceAuth(strategy pkgAuth.Strategy) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		caller, err := strategy.ParseToken(token)
		if err != nil {
			if errors.Is(err, pkgAuth.ErrInvalidToken) {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Set(CallerContextKey, caller)
		c.Next()
	}
}

// RequireCaller restricts a route group to one named collaborator.
func RequireCaller(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := c.Get(CallerContextKey)
		if !ok || val != name {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
