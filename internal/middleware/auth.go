package middleware

import (
	"net/http"
	"strings"

	"draftly/config"
	"draftly/internal/auth"
	"draftly/internal/repository"

	"github.com/gin-gonic/gin"
)

// AuthRequired validates the bearer JWT, rejects revoked token ids, and sets
// UserID/Email in context.
func AuthRequired(cfg *config.JWTConfig, tokens *repository.TokenRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		if claims.ID != "" && tokens != nil && tokens.IsRevoked(claims.ID) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
			return
		}
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("jti", claims.ID)
		c.Next()
	}
}

// GetUserID returns the authenticated user ID from context (must be used after AuthRequired).
func GetUserID(c *gin.Context) uint {
	v, _ := c.Get("user_id")
	if v == nil {
		return 0
	}
	return v.(uint)
}

// GetTokenID returns the JWT id of the presented access token.
func GetTokenID(c *gin.Context) string {
	v, _ := c.Get("jti")
	if v == nil {
		return ""
	}
	return v.(string)
}
