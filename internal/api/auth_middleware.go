// internal/api/auth_middleware.go
package api

import (
	"strings"

	"github.com/Corphon/AICodeReviewer/internal/auth"
	"github.com/Corphon/AICodeReviewer/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	userIDKey        = "user_id"
	userAdminKey     = "is_admin"
	userAuthedKey    = "user_authenticated"
	guestUserID      = "guest"
	bearerPrefix     = "Bearer "
	authErrorContext = "auth_error"
)

// AuthMiddleware 解析 Bearer token；缺失或无效时以访客身份继续
func AuthMiddleware(tokens *auth.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		setGuest := func() {
			c.Set(userIDKey, guestUserID)
			c.Set(userAdminKey, false)
			c.Set(userAuthedKey, false)
		}

		header := c.GetHeader("Authorization")
		raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if raw == "" {
			setGuest()
			c.Next()
			return
		}

		token, err := auth.ParseToken(raw, tokens)
		if err != nil {
			utils.GetLogger().Debug("AuthMiddleware: invalid token, downgrading to guest", map[string]interface{}{
				"error": err,
			})
			setGuest()
			c.Set(authErrorContext, err.Error())
			c.Next()
			return
		}

		c.Set(userIDKey, token.UserID)
		c.Set(userAdminKey, token.IsAdmin)
		c.Set(userAuthedKey, true)
		c.Next()
	}
}

// GetUserFromContext 返回当前用户 ID 以及是否已认证
func GetUserFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString(userIDKey)
	if userID == "" {
		return "", false
	}
	return userID, c.GetBool(userAuthedKey)
}

// RequireAdmin 仅允许管理员 token 访问
func RequireAdmin() gin.HandlerFunc {
	rh := NewResponseHelper()
	return func(c *gin.Context) {
		if _, authed := GetUserFromContext(c); !authed {
			rh.Unauthorized(c, "Authentication required")
			return
		}
		if !c.GetBool(userAdminKey) {
			rh.Forbidden(c, "Admin privileges required")
			return
		}
		c.Next()
	}
}
