package middleware

import (
	"context"
	"net/http"
	"strings"

	"artarena/internal/models"
	"artarena/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"

// UserLoader resolves an actor id to its user row.
type UserLoader interface {
	Get(ctx context.Context, id uint) (models.User, error)
}

// LoadUser 解析当前用户：优先 Authorization: Bearer <JWT>，其次 session 中的 user_id。
// 登录和注册由外部服务完成，这里只负责识别身份。
func LoadUser(loader UserLoader, jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID uint

		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				utils.Abort(c, http.StatusUnauthorized, "malformed Authorization header")
				return
			}
			claims, err := utils.ParseToken(jwtSecret, parts[1])
			if err != nil {
				utils.Abort(c, http.StatusUnauthorized, "invalid token")
				return
			}
			userID = claims.UserID
		} else {
			userID = sessionUserID(sessions.Default(c).Get("user_id"))
		}

		if userID != 0 {
			if user, err := loader.Get(c.Request.Context(), userID); err == nil {
				c.Set(CheckUserKey, &user)
			}
		}
		c.Next()
	}
}

func sessionUserID(v any) uint {
	switch id := v.(type) {
	case uint:
		return id
	case int:
		if id > 0 {
			return uint(id)
		}
	case int64:
		if id > 0 {
			return uint(id)
		}
	case uint64:
		return uint(id)
	case float64:
		if id > 0 {
			return uint(id)
		}
	}
	return 0
}

// CurrentUser returns the actor loaded by LoadUser, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CheckUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			utils.Abort(c, http.StatusUnauthorized, "login required")
			return
		}
		c.Next()
	}
}

// AdminRequired 只允许管理员访问
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			utils.Abort(c, http.StatusUnauthorized, "login required")
			return
		}
		if !user.IsAdmin() {
			utils.Abort(c, http.StatusForbidden, "admin only")
			return
		}
		c.Next()
	}
}
