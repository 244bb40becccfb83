package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"oms-service/internal/domain"
	"oms-service/internal/feature/session"
	"oms-service/internal/transport/http/ez"
)

type AuthHandler struct {
	svc   *session.Service
	guard gin.HandlerFunc
}

// guard 挂在匿名入口（登录/注册）前，nil 表示不限
func NewAuthHandler(svc *session.Service, guard gin.HandlerFunc) *AuthHandler {
	return &AuthHandler{svc: svc, guard: guard}
}

func (h *AuthHandler) Priority() int { return 10 }

type registerIn struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"     binding:"omitempty,max=128"`
}

// 登录不做 required 校验，缺字段由服务返回 MISSING_CREDENTIALS
type loginIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshIn struct {
	RefreshToken string `json:"refresh_token"`
}

type userOut struct {
	User domain.PublicUser `json:"user"`
}

type loginOut struct {
	User         domain.PublicUser `json:"user"`
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
}

type accessOut struct {
	AccessToken string `json:"access_token"`
}

func (h *AuthHandler) MountAPI(e ez.EZ) {
	ez.RegisterAction(e, ez.Action[registerIn, userOut]{
		Method:  http.MethodPost,
		Path:    "/auth/register",
		Binder:  ez.BindJSON,
		Use:     []gin.HandlerFunc{h.guard},
		Status:  http.StatusCreated,
		Message: "User registered successfully",
		Handler: func(c *gin.Context, _ *session.Principal, in *registerIn) (userOut, error) {
			res, err := h.svc.Register(c.Request.Context(), session.RegisterInput{
				Email: in.Email, Password: in.Password, Name: in.Name,
			})
			if err != nil {
				return userOut{}, err
			}
			return userOut{User: res.User}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[loginIn, loginOut]{
		Method:  http.MethodPost,
		Path:    "/auth/login",
		Binder:  ez.BindJSON,
		Use:     []gin.HandlerFunc{h.guard},
		Message: "Login successful",
		Handler: func(c *gin.Context, _ *session.Principal, in *loginIn) (loginOut, error) {
			res, err := h.svc.Login(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return loginOut{}, err
			}
			return loginOut{User: res.User, AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[refreshIn, accessOut]{
		Method:  http.MethodPost,
		Path:    "/auth/refresh-token",
		Binder:  ez.BindJSON,
		Message: "Token refreshed successfully",
		Handler: func(c *gin.Context, _ *session.Principal, in *refreshIn) (accessOut, error) {
			tok, err := h.svc.RefreshToken(c.Request.Context(), in.RefreshToken)
			if err != nil {
				return accessOut{}, err
			}
			return accessOut{AccessToken: tok}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, userOut]{
		Method:  http.MethodGet,
		Path:    "/auth/profile",
		Binder:  ez.BindNone,
		Auth:    true,
		Message: "Profile retrieved successfully",
		Handler: func(_ *gin.Context, p *session.Principal, _ *struct{}) (userOut, error) {
			return userOut{User: p.User.Public()}, nil
		},
	})

	// 可选带上 refresh_token 一并注销
	ez.RegisterAction(e, ez.Action[refreshIn, any]{
		Method:  http.MethodPost,
		Path:    "/auth/logout",
		Binder:  ez.BindJSON,
		Auth:    true,
		Message: "Logout successful",
		Handler: func(c *gin.Context, p *session.Principal, in *refreshIn) (any, error) {
			return nil, h.svc.Logout(c.Request.Context(), p, in.RefreshToken)
		},
	})
}
