// Package errors 应用错误码与 HTTP 状态映射
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误代码
type ErrorCode int

const (
	ErrCodeSuccess ErrorCode = iota
	ErrCodeBadRequest
	ErrCodeUnauthorized
	ErrCodeForbidden
	ErrCodeNotFound
	ErrCodeConflict
	ErrCodeInternalError
	ErrCodeDatabaseError
	ErrCodeTimeout
	ErrCodeRateLimited
	ErrCodeUnavailable
)

var codeNames = map[ErrorCode]string{
	ErrCodeSuccess:       "ok",
	ErrCodeBadRequest:    "bad_request",
	ErrCodeUnauthorized:  "unauthorized",
	ErrCodeForbidden:     "forbidden",
	ErrCodeNotFound:      "not_found",
	ErrCodeConflict:      "conflict",
	ErrCodeInternalError: "internal_error",
	ErrCodeDatabaseError: "database_error",
	ErrCodeTimeout:       "timeout",
	ErrCodeRateLimited:   "rate_limited",
	ErrCodeUnavailable:   "unavailable",
}

// String 响应中使用的错误码名称
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

// AppError 应用错误
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus 返回对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeDatabaseError, ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithDetails 复制错误并附加详情
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// NewError 创建新错误
func NewError(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NewErrorWithErr 创建带底层错误的错误
func NewErrorWithErr(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// WrapError 包装错误
func WrapError(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:    code,
			Message: message,
			Details: appErr.Details,
			Err:     appErr,
		}
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// From 取出错误链中最外层的 AppError，没有则归为内部错误
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewErrorWithErr(ErrCodeInternalError, ErrInternalError.Message, err)
}

// 预定义错误
var (
	ErrNotFound      = NewError(ErrCodeNotFound, "Resource not found")
	ErrUnauthorized  = NewError(ErrCodeUnauthorized, "Unauthorized")
	ErrForbidden     = NewError(ErrCodeForbidden, "Forbidden")
	ErrBadRequest    = NewError(ErrCodeBadRequest, "Bad request")
	ErrInternalError = NewError(ErrCodeInternalError, "Internal server error")
	ErrDatabaseError = NewError(ErrCodeDatabaseError, "Database error")
	ErrTimeout       = NewError(ErrCodeTimeout, "Operation timeout")
	ErrRateLimited   = NewError(ErrCodeRateLimited, "Rate limited")
	ErrUnavailable   = NewError(ErrCodeUnavailable, "Service unavailable")
)

// 业务错误
var (
	ErrUserNotFound       = NewError(ErrCodeNotFound, "User not found")
	ErrDetectorNotFound   = NewError(ErrCodeNotFound, "Detector not found")
	ErrInvalidCredentials = NewError(ErrCodeUnauthorized, "Invalid email or password")
	ErrEmailTaken         = NewError(ErrCodeConflict, "Email already registered")
	ErrSessionExpired     = NewError(ErrCodeUnauthorized, "Session expired")
)

// Is 检查错误链中是否有相同错误码的 AppError
func Is(err error, target *AppError) bool {
	if err == nil || target == nil {
		return false
	}

	for current := err; current != nil; current = errors.Unwrap(current) {
		appErr, ok := current.(*AppError)
		if !ok || appErr == nil {
			continue
		}
		if appErr.Code == target.Code {
			return true
		}
	}
	return false
}
