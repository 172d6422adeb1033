package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"local-services-server/config"
	"local-services-server/models"
	"local-services-server/utils"
)

const (
	adminIDKey = "admin_id"
	adminKey   = "admin"
)

// AdminLookup resolves an active admin by id.
type AdminLookup interface {
	Get(ctx context.Context, id uint) (*models.Admin, error)
}

// AdminAuth validates the bearer token and loads the admin it belongs to.
// WebSocket upgrades may pass the token as a "token" query parameter since
// browsers cannot set headers on them.
func AdminAuth(cfg config.JWTConfig, admins AdminLookup, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			AbortWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		claims, err := utils.VerifyToken(cfg, tokenString)
		if err != nil {
			logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("token rejected")
			AbortWithError(c, http.StatusUnauthorized, "Token is invalid or expired")
			return
		}

		admin, err := admins.Get(c.Request.Context(), claims.AdminID)
		if err != nil || admin == nil {
			AbortWithError(c, http.StatusUnauthorized, "Admin account not found or inactive")
			return
		}

		c.Set(adminKey, admin)
		c.Set(adminIDKey, admin.ID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader || token == "" {
			return "", false
		}
		return token, true
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		if token := c.Query("token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// GetAdminID returns the authenticated admin's id.
func GetAdminID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(adminIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// GetAdmin returns the authenticated admin.
func GetAdmin(c *gin.Context) (*models.Admin, bool) {
	v, ok := c.Get(adminKey)
	if !ok {
		return nil, false
	}
	admin, ok := v.(*models.Admin)
	return admin, ok
}
