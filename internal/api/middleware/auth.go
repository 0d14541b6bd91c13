package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/blog-reactions/internal/model"
	"github.com/d60-Lab/blog-reactions/internal/service"
	"github.com/d60-Lab/blog-reactions/pkg/auth"
	"github.com/d60-Lab/blog-reactions/pkg/response"
)

const (
	ctxUserID = "auth.user_id"
	ctxGroup  = "auth.group"
)

// RequireAuth 必须携带有效的 Bearer 令牌
func RequireAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c, tokens)
		if !ok {
			response.Unauthorized(c, "missing or invalid token")
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth 令牌有效时写入用户身份，否则按匿名处理
func OptionalAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := parseBearer(c, tokens); ok {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// UserLookup 按 ID 读取用户
type UserLookup interface {
	Get(ctx context.Context, id string) (*model.User, error)
}

// RequireActive 需放在 RequireAuth 之后。令牌只证明身份，
// 账号是否存在、是否被封禁以及用户组以数据库为准。
func RequireActive(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := users.Get(c.Request.Context(), UserID(c))
		switch {
		case errors.Is(err, service.ErrNotFound):
			response.Unauthorized(c, "account no longer exists")
			return
		case err != nil:
			response.InternalError(c, err)
			return
		case !u.IsActive:
			response.Forbidden(c, service.ErrUserBlocked.Error())
			return
		}
		c.Set(ctxGroup, u.Group)
		c.Next()
	}
}

// RequireAdmin 需放在 RequireAuth 之后
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxGroup) != model.GroupAdmin {
			response.Forbidden(c, "admin only")
			return
		}
		c.Next()
	}
}

// UserID 当前请求的用户，匿名时为空
func UserID(c *gin.Context) string { return c.GetString(ctxUserID) }

func parseBearer(c *gin.Context, tokens *auth.TokenManager) (*auth.Claims, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, false
	}
	claims, err := tokens.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil, false
	}
	return claims, true
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxGroup, claims.Group)
}
