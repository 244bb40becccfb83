package ez

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"oms-service/internal/core/errs"
	"oms-service/internal/feature/session"
	mdw "oms-service/internal/transport/http/middleware"
	resp "oms-service/internal/transport/http/response"
)

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindURI   Binder = "uri"   // 从路径参数 :id 绑定
	BindNone  Binder = "none"  // 不绑定
)

type EZ struct {
	g     *gin.RouterGroup
	authn mdw.Authenticator
}

func New(g *gin.RouterGroup, authn mdw.Authenticator) EZ {
	registerTagNames()
	return EZ{g: g, authn: authn}
}

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string            // "GET" | "POST" | "PUT" | "DELETE"
	Path    string            // 例："/auth/login"、"/orders/:id"
	Binder  Binder            // 绑定方式
	Auth    bool              // 是否要求登录
	Roles   []string          // 限定角色（非空时隐含 Auth）
	Status  int               // 成功状态码，默认 200
	Message string            // 成功信封里的 message
	Use     []gin.HandlerFunc // 鉴权之前执行（如限流）
	// p 仅在 Auth 时非 nil
	Handler func(c *gin.Context, p *session.Principal, in *I) (O, error)
}

// RegisterAction 鉴权 → 角色 → 绑定 → 执行 → 信封
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	chain := make([]gin.HandlerFunc, 0, len(a.Use)+2)
	for _, h := range a.Use {
		if h != nil {
			chain = append(chain, h)
		}
	}
	if a.Auth || len(a.Roles) > 0 {
		chain = append(chain, mdw.AuthJWT(e.authn, a.Roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		var in I
		if err := bind(c, a.Binder, &in); err != nil {
			resp.Fail(c, err)
			return
		}
		out, err := a.Handler(c, mdw.PrincipalFrom(c), &in)
		if err != nil {
			if errors.Is(c.Request.Context().Err(), context.DeadlineExceeded) {
				err = mdw.TimeoutError().WithCause(err)
			}
			resp.Fail(c, err)
			return
		}
		resp.OK(c, a.Status, a.Message, out)
	})

	method := strings.ToUpper(a.Method)
	if method == "" {
		method = http.MethodPost
	}
	e.g.Handle(method, a.Path, chain...)
}

func bind(c *gin.Context, b Binder, in any) error {
	var err error
	switch b {
	case BindJSON:
		err = c.ShouldBindJSON(in)
		if errors.Is(err, io.EOF) {
			// 空 body 视为空对象，仍然走字段校验
			err = binding.Validator.ValidateStruct(in)
		}
	case BindQuery:
		err = c.ShouldBindQuery(in)
	case BindURI:
		err = c.ShouldBindUri(in)
	default:
		return nil
	}
	if err == nil {
		return nil
	}
	return bindError(b, err)
}

func bindError(b Binder, err error) error {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		details := make([]string, 0, len(ves))
		for _, fe := range ves {
			details = append(details, describe(fe))
		}
		return errs.Validation(details...).WithCause(err)
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return errs.Business(resp.CodeRequestTooLarge, resp.MsgTooLarge).WithCause(err)
	}
	if b == BindJSON {
		return errs.Business(resp.CodeInvalidBody, resp.MsgInvalidBody).WithCause(err)
	}
	return errs.Business(resp.CodeInvalidParams, resp.MsgInvalidParams).WithCause(err)
}

func describe(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "email":
		return f + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", f, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", f, fe.Param())
	default:
		return fmt.Sprintf("%s failed on the '%s' rule", f, fe.Tag())
	}
}

var tagOnce sync.Once

// 校验错误里的字段名使用 json/form/uri 标签名
func registerTagNames() {
	tagOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, key := range []string{"json", "form", "uri"} {
				name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return ""
		})
	})
}
