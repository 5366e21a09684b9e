package user

import (
	"net/http"
	"strings"

	"github.com/SlpAus/multiworld-tracker-backend/internal/audit"
	"github.com/SlpAus/multiworld-tracker-backend/pkg/token"
	"github.com/gin-gonic/gin"
)

const (
	// CurrentUserKey 是认证成功后放入Gin上下文的*User
	CurrentUserKey = "currentUser"
	// AuthSourceKey 是认证方式（audit.SourceSession / audit.SourceAPIKey）
	AuthSourceKey = "authSource"
	// APIKeyHeader 是脚本化访问使用的请求头
	APIKeyHeader = "X-Api-Key"
)

// LoadUserMiddleware 尝试从请求中识别用户，但不强制要求认证。
// 支持两种方式：Authorization头中的会话Bearer令牌，或X-Api-Key头中的API密钥。
// 识别出的用户和认证方式会被放入Gin上下文，供业务层和审计使用。
func LoadUserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey := c.GetHeader(APIKeyHeader); apiKey != "" {
			u, err := GetByAPIKey(apiKey)
			if err == nil && u != nil {
				c.Set(CurrentUserKey, u)
				c.Set(AuthSourceKey, audit.SourceAPIKey)
			}
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if bearer, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			if userID, err := token.ParseSessionToken(bearer); err == nil {
				if u, err := GetByID(userID); err == nil && u != nil {
					c.Set(CurrentUserKey, u)
					c.Set(AuthSourceKey, audit.SourceSession)
				}
			}
		}

		c.Next()
	}
}

// RequireUserMiddleware 在LoadUserMiddleware之后使用，拒绝未认证的请求
func RequireUserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(CurrentUserKey); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "需要登录"})
			return
		}
		c.Next()
	}
}

// CurrentUser 从Gin上下文取出已认证的用户，未认证时返回nil
func CurrentUser(c *gin.Context) *User {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*User)
	return u
}

// ActorFromContext 组装审计使用的操作者元数据
func ActorFromContext(c *gin.Context) audit.Actor {
	actor := audit.Actor{
		IP:     c.ClientIP(),
		Source: c.GetString(AuthSourceKey),
	}
	if u := CurrentUser(c); u != nil {
		actor.UserID = &u.ID
	}
	return actor
}
