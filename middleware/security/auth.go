package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"WChat/global/config"
	usermodel "WChat/module/user/model"
	"WChat/tools/errs"
	"WChat/tools/security"
)

// —— context key ——
// 后续模块统一用这个 key 读当前用户
const CtxUserKey = "currentUser"

const cookieName = "token"

type Options struct {
	// 会话 cookie 名，默认 "token"
	CookieName string
	// 兼容 Authorization: Bearer xxx，默认开
	EnableAuthorizationBearer bool
}

func DefaultOptions() *Options {
	return &Options{
		CookieName:                cookieName,
		EnableAuthorizationBearer: true,
	}
}

// Middleware 会话校验：cookie 里的 JWT -> 用户文档 -> context。
// 校验不过一律 401，不区分过期/伪造（避免给探测者信息）。
func Middleware(opts *Options) gin.HandlerFunc {
	if opts == nil {
		opts = DefaultOptions()
	}
	return func(c *gin.Context) {
		token, _ := c.Cookie(opts.CookieName)
		token = strings.TrimSpace(token)

		if token == "" && opts.EnableAuthorizationBearer {
			if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
				if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
					token = strings.TrimSpace(authz[len("bearer "):])
				}
			}
		}
		if token == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := security.Verify(security.Options{Secret: []byte(config.GetJwtSecret())}, token)
		if err != nil {
			abortUnauthorized(c)
			return
		}
		uid, err := primitive.ObjectIDFromHex(claims.UserID())
		if err != nil {
			abortUnauthorized(c)
			return
		}

		var user usermodel.User
		err = usermodel.User{}.Collection().
			FindOne(c.Request.Context(), bson.M{"_id": uid}).
			Decode(&user)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(CtxUserKey, &user)
		c.Next()
	}
}

// CurrentUser 取中间件放进去的用户；没经过鉴权的路由拿到 nil
func CurrentUser(c *gin.Context) *usermodel.User {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*usermodel.User)
	return u
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": errs.ErrUnauthorized.Msg})
}
