package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/personashop/internal/auth"
	"github.com/timmy/personashop/internal/logger"
)

const (
	userIDKey = "user_id"

	// UserIDHeader identifies the caller when token auth is disabled.
	UserIDHeader = "X-User-ID"
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Auth rejects requests without a valid bearer token and stores the
// authenticated user id on the context.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := verifier.Verify(auth.BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		setUser(c, userID)
		c.Next()
	}
}

// HeaderIdentity trusts the X-User-ID header. Only for local development
// with auth disabled.
func HeaderIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + UserIDHeader + " header"})
			return
		}
		setUser(c, userID)
		c.Next()
	}
}

func setUser(c *gin.Context, userID string) {
	c.Set(userIDKey, userID)
	c.Request = c.Request.WithContext(logger.SetUserID(c.Request.Context(), userID))
}

// UserID returns the authenticated user id.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
