// api/middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/models"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// contextKey is a type for context keys
type contextKey string

// APIKeyContextKey holds the authenticated API key for the request
const APIKeyContextKey contextKey = "api_key"

// APIKeyAuth middleware validates API tokens from Authorization header
func APIKeyAuth(repo repository.Repository, log *logrus.Logger, requiredLevel models.AuthorizationLevel) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		// Check if Authorization header is present
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		// Extract token from header
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid Authorization header format. Expected: 'Bearer {token}'",
			})
			c.Abort()
			return
		}

		token := parts[1]

		// Validate token
		apiKey, err := repo.GetAPIKeyByKey(c.Request.Context(), token)
		if err != nil {
			log.WithError(err).Warn("Invalid API key")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid API key",
			})
			c.Abort()
			return
		}

		// Check if key is expired
		if apiKey.ExpiresAt != nil && apiKey.ExpiresAt.Before(time.Now()) {
			log.Warn("Expired API key")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "API key expired",
			})
			c.Abort()
			return
		}

		// Check if key has sufficient permissions
		if apiKey.AuthorizationLevel < requiredLevel {
			log.Warnf("Insufficient permissions. Required: %d, Provided: %d",
				requiredLevel, apiKey.AuthorizationLevel)
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			c.Abort()
			return
		}

		// Update last used timestamp
		now := time.Now()
		apiKey.LastUsedAt = &now
		go func() {
			// Update in a goroutine to avoid blocking the request
			repo.UpdateAPIKey(context.Background(), apiKey)
		}()

		// Store API key in context for later use if needed
		c.Set(string(APIKeyContextKey), apiKey)

		c.Next()
	}
}
