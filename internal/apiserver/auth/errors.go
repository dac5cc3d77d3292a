package auth

import (
	"errors"
	"net/http"

	"bookstore-api/internal/apiserver/validation"
)

// ValidationError 请求字段校验失败
type ValidationError = validation.Error

var (
	// ErrDuplicateUser 邮箱已注册
	ErrDuplicateUser = errors.New("this user already registered")

	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials 邮箱或密码错误（两种情况消息相同）
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthorized 未携带令牌
	ErrUnauthorized = errors.New("not authorized")

	// ErrInvalidOrExpiredToken 令牌无效、过期或已被作废
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	// ErrConfiguration 服务端未配置签名密钥
	ErrConfiguration = errors.New("auth secret is not configured")
)

// HTTPStatus 将认证领域错误映射为 HTTP 状态码
//
// 重置流程中 ErrUnauthorized 为 403、ErrInvalidOrExpiredToken 为 401；
// 访问守卫自行决定状态码，不经过此函数。
func HTTPStatus(err error) int {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateUser), errors.Is(err, ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage 返回可以暴露给客户端的错误消息，内部错误统一为 "internal error"
func PublicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	for _, known := range []error{
		ErrDuplicateUser, ErrUserNotFound, ErrInvalidCredentials,
		ErrUnauthorized, ErrInvalidOrExpiredToken,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
