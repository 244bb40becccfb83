package response

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"oms-service/internal/core/errs"
)

type Resp struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
}

type ErrResp struct {
	Success    bool     `json:"success"`
	StatusCode int      `json:"statusCode"`
	Timestamp  string   `json:"timestamp"`
	Path       string   `json:"path"`
	Method     string   `json:"method"`
	Message    string   `json:"message"`
	Error      string   `json:"error"`
	Code       string   `json:"code,omitempty"`
	Details    []string `json:"details,omitempty"`
	Stack      string   `json:"stack,omitempty"`
}

// 非生产环境才在错误响应里带 stack
var exposeStack atomic.Bool

func SetExposeStack(v bool) { exposeStack.Store(v) }

func now() string { return time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00") }

// OK 成功响应（data 为 nil 时输出 null）
func OK(c *gin.Context, status int, msg string, data any) {
	if msg == "" {
		msg = MsgOK
	}
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, Resp{
		Success:    true,
		StatusCode: status,
		Message:    msg,
		Data:       data,
		Timestamp:  now(),
		Path:       c.Request.URL.RequestURI(),
	})
}

// Fail 渲染错误信封，并记录到 c.Errors 供访问日志使用
func Fail(c *gin.Context, err error) {
	e, ok := errs.As(err)
	if !ok {
		e = errs.Internal("", err)
	}
	_ = c.Error(err)

	var stack string
	if exposeStack.Load() && e.Err != nil {
		stack = e.Err.Error()
	}
	c.AbortWithStatusJSON(e.Status(), build(c, e, stack))
}

// Panic 供 recovery 使用
func Panic(c *gin.Context, rec any) {
	e := errs.Internal("", fmt.Errorf("panic: %v", rec))
	_ = c.Error(e)

	var stack string
	if exposeStack.Load() {
		stack = fmt.Sprintf("%v\n%s", rec, debug.Stack())
	}
	c.AbortWithStatusJSON(e.Status(), build(c, e, stack))
}

func build(c *gin.Context, e *errs.Error, stack string) ErrResp {
	return ErrResp{
		Success:    false,
		StatusCode: e.Status(),
		Timestamp:  now(),
		Path:       c.Request.URL.RequestURI(),
		Method:     c.Request.Method,
		Message:    e.Message,
		Error:      e.Label(),
		Code:       e.Code,
		Details:    e.Details,
		Stack:      stack,
	}
}

func NoRoute(c *gin.Context) {
	e := errs.NotFound("Route")
	e.Code = CodeRouteNotFound
	e.Message = MsgRouteNotFound
	Fail(c, e)
}
