package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"oms-service/internal/domain"
	"oms-service/internal/feature/order"
	"oms-service/internal/feature/session"
	"oms-service/internal/transport/http/ez"
	"oms-service/pkg/pagination"
)

type OrderHandler struct{ svc *order.Service }

func NewOrderHandler(svc *order.Service) *OrderHandler { return &OrderHandler{svc: svc} }

func (h *OrderHandler) Priority() int { return 30 }

func (h *OrderHandler) MountAPI(e ez.EZ) {
	ez.RegisterAction(e, ez.Action[order.CreateInput, *domain.Order]{
		Method:  http.MethodPost,
		Path:    "/orders",
		Binder:  ez.BindJSON,
		Auth:    true,
		Status:  http.StatusCreated,
		Message: "Order created successfully",
		Handler: func(c *gin.Context, p *session.Principal, in *order.CreateInput) (*domain.Order, error) {
			return h.svc.Create(c.Request.Context(), p.User.ID, *in)
		},
	})

	ez.RegisterAction(e, ez.Action[order.ListQuery, *pagination.Result[domain.Order]]{
		Method:  http.MethodGet,
		Path:    "/orders",
		Binder:  ez.BindQuery,
		Auth:    true,
		Message: "Orders retrieved successfully",
		Handler: func(c *gin.Context, p *session.Principal, in *order.ListQuery) (*pagination.Result[domain.Order], error) {
			return h.svc.List(c.Request.Context(), p.User.ID, *in, c.Request.URL.Path)
		},
	})

	ez.RegisterAction(e, ez.Action[idIn, *domain.Order]{
		Method:  http.MethodGet,
		Path:    "/orders/:id",
		Binder:  ez.BindURI,
		Auth:    true,
		Message: "Order retrieved successfully",
		Handler: func(c *gin.Context, p *session.Principal, in *idIn) (*domain.Order, error) {
			return h.svc.Get(c.Request.Context(), p.User.ID, in.ID)
		},
	})
}
