package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/d60-Lab/colmena/config"
	"github.com/d60-Lab/colmena/pkg/auth"
	"github.com/d60-Lab/colmena/pkg/response"
)

const (
	ctxIdentifier = "colmena.identifier"
	ctxUserID     = "colmena.user_id"
	ctxAnonID     = "colmena.anon_id"
	ctxAnonIssued = "colmena.anon_issued"
)

// Identity 解析调用者身份：优先 Bearer 令牌，否则使用匿名 cookie，没有就签发一个。
// 携带了无效令牌直接 401，不回退到匿名身份。
func Identity(tokens *auth.TokenManager, cfg config.IdentityConfig) gin.HandlerFunc {
	name := cfg.CookieName
	if name == "" {
		name = "colmena_uid"
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}

	return func(c *gin.Context) {
		anon := ""
		if v, err := c.Cookie(name); err == nil && validAnonToken(v) {
			anon = v
		}

		if header := c.GetHeader("Authorization"); header != "" {
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				response.Unauthorized(c, "invalid authorization header")
				return
			}
			claims, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				response.Unauthorized(c, err.Error())
				return
			}
			c.Set(ctxIdentifier, claims.Subject)
			c.Set(ctxUserID, claims.Subject)
			c.Set(ctxAnonID, anon)
			c.Next()
			return
		}

		if anon == "" {
			anon = uuid.New().String()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(name, anon, int(maxAge/time.Second), "/", cfg.Domain, cfg.Secure, true)
			c.Set(ctxAnonIssued, true)
		}
		c.Set(ctxIdentifier, anon)
		c.Set(ctxAnonID, anon)
		c.Next()
	}
}

// ClearIdentityCookie 匿名数据并入账号后清除 cookie
func ClearIdentityCookie(c *gin.Context, cfg config.IdentityConfig) {
	name := cfg.CookieName
	if name == "" {
		name = "colmena_uid"
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", cfg.Domain, cfg.Secure, true)
}

// RequireUser 只允许已登录账号
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			response.Unauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// Identifier 当前调用者（账号 ID 或匿名 token）
func Identifier(c *gin.Context) string { return c.GetString(ctxIdentifier) }

// UserID 未登录时为空
func UserID(c *gin.Context) string { return c.GetString(ctxUserID) }

// AnonID 请求携带或刚签发的匿名 token
func AnonID(c *gin.Context) string { return c.GetString(ctxAnonID) }

// AnonIssued 匿名 token 是否由本次请求新签发（请求本身没带 cookie）
func AnonIssued(c *gin.Context) bool { return c.GetBool(ctxAnonIssued) }

// IncomingAnonID 请求自带的匿名 token；刚签发的不算
func IncomingAnonID(c *gin.Context) string {
	if AnonIssued(c) {
		return ""
	}
	return AnonID(c)
}

func validAnonToken(v string) bool {
	_, err := uuid.Parse(v)
	return err == nil
}
