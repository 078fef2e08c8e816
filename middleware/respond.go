package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"WChat/logger"
	"WChat/tools/errs"
)

// FailWith 统一错误出口：CodeError 的 Code 就是 HTTP 状态码，
// 其它错误一律 500 且不把内部细节漏给客户端。
func FailWith(c *gin.Context, err error) {
	if ce := errs.Unwrap(err); ce != nil {
		body := gin.H{"message": ce.Msg}
		// 4xx 的细节对客户端有用；5xx 的内部细节不外漏
		if ce.Code < 500 && ce.Detail != "" {
			body["error"] = ce.Detail
		}
		c.JSON(ce.Code, body)
		return
	}
	logger.Errorf("[HTTP] %s %s: %+v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "内部错误"})
}
