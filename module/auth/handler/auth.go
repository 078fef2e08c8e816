package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"WChat/global/config"
	"WChat/middleware"
	midsec "WChat/middleware/security"
	"WChat/module/auth/service"
	"WChat/tools/errs"
)

const cookieName = "token"

type registerReq struct {
	Username string `json:"username" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Avatar   string `json:"avatar"`
}

type loginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// HandlerRegister POST /api/auth/register
func HandlerRegister(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.FailWith(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}

	user, token, err := service.Register(c.Request.Context(), service.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   req.Avatar,
	})
	if err != nil {
		middleware.FailWith(c, err)
		return
	}

	setSessionCookie(c, token)
	c.JSON(http.StatusCreated, user)
}

// HandlerLogin POST /api/auth/login
func HandlerLogin(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.FailWith(c, errs.ErrBadRequest.WithDetail(err.Error()))
		return
	}

	user, token, err := service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.FailWith(c, err)
		return
	}

	setSessionCookie(c, token)
	c.JSON(http.StatusOK, user)
}

// HandlerLogout POST /api/auth/logout（需登录）
func HandlerLogout(c *gin.Context) {
	user := midsec.CurrentUser(c)
	if user == nil {
		middleware.FailWith(c, errs.ErrUnauthorized)
		return
	}
	if err := service.Logout(c.Request.Context(), user.ID); err != nil {
		middleware.FailWith(c, err)
		return
	}
	clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "已退出登录"})
}

// ===== cookie =====

// 会话放 HttpOnly cookie，脚本拿不到；跨站部署时 Secure+SameSite=None
func setSessionCookie(c *gin.Context, token string) {
	conf := config.Get()
	sameSite := http.SameSiteLaxMode
	if conf.CookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(cookieName, token, int(service.SessionTTL.Seconds()), "/", "", conf.CookieSecure, true)
}

func clearSessionCookie(c *gin.Context) {
	conf := config.Get()
	sameSite := http.SameSiteLaxMode
	if conf.CookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(cookieName, "", -1, "/", "", conf.CookieSecure, true)
}
