package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nratax/nratax-api/internal/logger"
)

// APIKeyAuth gates every route behind a shared API key passed in the
// X-API-Key header. An empty configured key disables the gate, which is
// only meant for local development.
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		presented := c.GetHeader("X-API-Key")
		if presented == "" {
			logger.Debug("Authentication failed",
				zap.String("reason", "no API key provided"),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("client_ip", c.ClientIP()),
			)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authentication provided"})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
			logger.Debug("Authentication failed",
				zap.String("reason", "invalid API key"),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
