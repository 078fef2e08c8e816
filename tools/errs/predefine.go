package errs

import "net/http"

// 预定义业务错误：Code 直接作为 HTTP 状态码返回
var (
	ErrBadRequest       = NewCodeError(http.StatusBadRequest, "请求参数不合法")
	ErrUnauthorized     = NewCodeError(http.StatusUnauthorized, "没有权限访问，请先登录")
	ErrTokenInvalid     = NewCodeError(http.StatusUnauthorized, "token 不合法，请重新登录")
	ErrTokenExpired     = NewCodeError(http.StatusUnauthorized, "token 已过期，请重新登录")
	ErrForbidden        = NewCodeError(http.StatusForbidden, "没有操作权限")
	ErrRecordNotFound   = NewCodeError(http.StatusNotFound, "记录不存在")
	ErrUserNotFound     = NewCodeError(http.StatusNotFound, "用户不存在")
	ErrChatNotFound     = NewCodeError(http.StatusNotFound, "会话不存在")
	ErrMessageNotFound  = NewCodeError(http.StatusNotFound, "消息不存在")
	ErrRecordIsExist    = NewCodeError(http.StatusBadRequest, "记录已存在")
	ErrDuplicateEmail   = NewCodeError(http.StatusBadRequest, "邮箱已被注册")
	ErrDuplicateName    = NewCodeError(http.StatusBadRequest, "用户名已被使用")
	ErrBadCredentials   = NewCodeError(http.StatusUnauthorized, "邮箱或密码不正确")
	ErrNotParticipant   = NewCodeError(http.StatusForbidden, "你不是该会话的成员")
	ErrNotGroupAdmin    = NewCodeError(http.StatusForbidden, "只有群管理员可以执行该操作")
	ErrServerInternal   = NewCodeError(http.StatusInternalServerError, "服务器内部错误")
)
