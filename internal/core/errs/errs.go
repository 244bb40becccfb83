// Package errs 定义服务端统一的错误分类，transport 层据此渲染响应信封。
package errs

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindBusiness
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimit
	KindUnavailable
)

var kindStatus = map[Kind]int{
	KindInternal:     http.StatusInternalServerError,
	KindBusiness:     http.StatusBadRequest,
	KindValidation:   http.StatusUnprocessableEntity,
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindNotFound:     http.StatusNotFound,
	KindConflict:     http.StatusConflict,
	KindRateLimit:    http.StatusTooManyRequests,
	KindUnavailable:  http.StatusServiceUnavailable,
}

// 响应中的 error 字段
var kindLabel = map[Kind]string{
	KindInternal:     "Internal Server Error",
	KindBusiness:     "Bad Request",
	KindValidation:   "ValidationError",
	KindUnauthorized: "Unauthorized",
	KindForbidden:    "Forbidden",
	KindNotFound:     "Not Found",
	KindConflict:     "Conflict",
	KindRateLimit:    "Rate Limit Exceeded",
	KindUnavailable:  "Service Unavailable",
}

type Error struct {
	Kind    Kind
	Code    string   // 机器可读，如 WEAK_PASSWORD
	Message string   // 面向调用方
	Details []string // 仅 Validation 使用
	Err     error    // 内部原因，不对外
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return kindLabel[e.Kind]
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Status() int { return kindStatus[e.Kind] }

func (e *Error) Label() string { return kindLabel[e.Kind] }

func Business(code, msg string) *Error {
	if code == "" {
		code = "BUSINESS_ERROR"
	}
	return &Error{Kind: KindBusiness, Code: code, Message: msg}
}

func Validation(details ...string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: "Validation failed", Details: details}
}

func Unauthorized(msg string) *Error {
	if msg == "" {
		msg = "Unauthorized access"
	}
	return &Error{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: msg}
}

func Forbidden(msg string) *Error {
	if msg == "" {
		msg = "Access forbidden"
	}
	return &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: msg}
}

// NotFound("User") -> "User not found"
func NotFound(resource string) *Error {
	if resource == "" {
		resource = "Resource"
	}
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: resource + " not found"}
}

func Conflict(msg string) *Error {
	if msg == "" {
		msg = "Resource conflict"
	}
	return &Error{Kind: KindConflict, Code: "CONFLICT", Message: msg}
}

func RateLimit(msg string) *Error {
	if msg == "" {
		msg = "Too many requests"
	}
	return &Error{Kind: KindRateLimit, Code: "RATE_LIMIT_EXCEEDED", Message: msg}
}

func Unavailable(msg string) *Error {
	if msg == "" {
		msg = "Service temporarily unavailable"
	}
	return &Error{Kind: KindUnavailable, Code: "SERVICE_UNAVAILABLE", Message: msg}
}

func Internal(msg string, err error) *Error {
	if msg == "" {
		msg = "Internal server error"
	}
	return &Error{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: msg, Err: err}
}

// WithCause 附带内部原因（日志 / 非生产环境 stack 使用）
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Rewrap 只放行 pass 列出的类别，其余统一包成 Business(code, msg) 并保留原因
func Rewrap(err error, code, msg string, pass ...Kind) error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		for _, k := range pass {
			if e.Kind == k {
				return e
			}
		}
	}
	return Business(code, msg).WithCause(err)
}
