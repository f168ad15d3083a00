package handlers

import (
	"net/http"
	"strings"

	"legal-analyzer-backend/auth"

	"github.com/gin-gonic/gin"
)

// usernameKey is the gin context key holding the authenticated username
const usernameKey = "username"

// AuthRequired validates the bearer token and stores the username in the
// request context
func AuthRequired(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing or malformed Authorization header",
				},
			})
			return
		}

		username, err := tokens.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid or expired token",
				},
			})
			return
		}

		c.Set(usernameKey, username)
		c.Next()
	}
}

// currentUsername returns the username set by AuthRequired
func currentUsername(c *gin.Context) string {
	return c.GetString(usernameKey)
}
