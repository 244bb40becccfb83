package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"oms-service/internal/core/errs"
	"oms-service/internal/domain"
	"oms-service/internal/feature/session"
	"oms-service/internal/feature/user"
	"oms-service/internal/transport/http/ez"
	"oms-service/pkg/pagination"
)

type UserHandler struct{ svc *user.Service }

func NewUserHandler(svc *user.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Priority() int { return 20 }

type idIn struct {
	ID uint64 `uri:"id" binding:"required,min=1"`
}

type bannedOut struct {
	ID uint64 `json:"id"`
}

func (h *UserHandler) MountAPI(e ez.EZ) {
	ez.RegisterAction(e, ez.Action[user.ListQuery, *pagination.Result[domain.PublicUser]]{
		Method:  http.MethodGet,
		Path:    "/users",
		Binder:  ez.BindQuery,
		Auth:    true,
		Message: "Users retrieved successfully",
		Handler: func(c *gin.Context, p *session.Principal, in *user.ListQuery) (*pagination.Result[domain.PublicUser], error) {
			// 已封禁用户只对管理员可见
			if !p.User.IsAdmin() {
				in.WithDeleted = false
			}
			return h.svc.List(c.Request.Context(), *in, c.Request.URL.Path)
		},
	})
}

func (h *UserHandler) MountAdmin(e ez.EZ) {
	ez.RegisterAction(e, ez.Action[user.ListQuery, *pagination.Result[domain.PublicUser]]{
		Method:  http.MethodGet,
		Path:    "/users",
		Binder:  ez.BindQuery,
		Roles:   []string{domain.RoleAdmin},
		Message: "Users retrieved successfully",
		Handler: func(c *gin.Context, _ *session.Principal, in *user.ListQuery) (*pagination.Result[domain.PublicUser], error) {
			return h.svc.List(c.Request.Context(), *in, c.Request.URL.Path)
		},
	})

	ez.RegisterAction(e, ez.Action[idIn, bannedOut]{
		Method:  http.MethodPost,
		Path:    "/users/:id/ban",
		Binder:  ez.BindURI,
		Roles:   []string{domain.RoleAdmin},
		Message: "User banned successfully",
		Handler: func(c *gin.Context, p *session.Principal, in *idIn) (bannedOut, error) {
			if in.ID == p.User.ID {
				return bannedOut{}, errs.Business("CANNOT_BAN_SELF", "Administrators cannot ban themselves")
			}
			if err := h.svc.Ban(c.Request.Context(), in.ID); err != nil {
				return bannedOut{}, err
			}
			return bannedOut{ID: in.ID}, nil
		},
	})
}
