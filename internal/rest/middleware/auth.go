package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/streamshare/streamshare/internal/auth"
	"github.com/streamshare/streamshare/internal/config"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/streamshare/streamshare/internal/types"
)

// AuthenticateMiddleware validates the Bearer token in the Authorization header and puts the
// caller's actor, user ID and account ID in the request context for downstream handlers
func AuthenticateMiddleware(cfg *config.Configuration, logger *logger.Logger) gin.HandlerFunc {
	authProvider := auth.NewProvider(cfg)

	return func(c *gin.Context) {
		authHeader := c.GetHeader(types.HeaderAuthorization)
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := authProvider.ValidateToken(c.Request.Context(), tokenString)
		if err != nil {
			logger.Debugw("failed to validate token", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(types.WithActor(c.Request.Context(), claims.Actor()))
		c.Next()
	}
}

// CronAuthMiddleware guards the job trigger endpoints with the shared cron secret.
// Authorized requests run as the system actor.
func CronAuthMiddleware(cfg *config.Configuration, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.ValidateCronSecret(cfg, c.GetHeader(types.HeaderCronSecret)) {
			logger.Warnw("rejected cron request", "path", c.FullPath(), "ip", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(types.WithActor(c.Request.Context(), types.SystemActor()))
		c.Next()
	}
}
