package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/betpals/internal/security"
	"github.com/mroshb/betpals/pkg/errors"
)

const userIDKey = "user_id"

// Auth validates the bearer session token issued by the identity provider
// and stores its subject as the current user id.
func Auth(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
				"code":  errors.ErrCodeUnauthorized,
			})
			return
		}

		claims, err := security.ValidateJWT(strings.TrimSpace(token), secret, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
				"code":  errors.ErrCodeUnauthorized,
			})
			return
		}

		c.Set(userIDKey, claims.UserID())
		if claims.Email != "" {
			c.Set("email", claims.Email)
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id, or "" outside Auth.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// CurrentEmail returns the email claim of the session, if any.
func CurrentEmail(c *gin.Context) string {
	return c.GetString("email")
}
