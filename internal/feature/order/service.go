package order

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"oms-service/internal/core/errs"
	"oms-service/internal/domain"
	"oms-service/pkg/pagination"
	"oms-service/pkg/utils"
)

const DefaultCurrency = "USD"

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

type CreateInput struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Note     string `json:"note" binding:"omitempty,max=255"`
}

type ListQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

type Service struct {
	orders   domain.OrderRepository
	maxLimit int
	log      *zap.Logger
	now      func() time.Time
}

func NewService(orders domain.OrderRepository, maxLimit int, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{orders: orders, maxLimit: maxLimit, log: l, now: time.Now}
}

func (s *Service) Create(ctx context.Context, ownerID uint64, in CreateInput) (*domain.Order, error) {
	if in.Amount <= 0 {
		return nil, errs.Business("INVALID_AMOUNT", "Amount must be greater than zero")
	}
	cur := strings.ToUpper(strings.TrimSpace(in.Currency))
	if cur == "" {
		cur = DefaultCurrency
	}
	if !currencyRe.MatchString(cur) {
		return nil, errs.Business("INVALID_CURRENCY", "Currency must be a 3-letter ISO code")
	}

	o := &domain.Order{
		UUID:      utils.NewUUID(),
		Reference: utils.ReferenceID("ORD", s.now()),
		UserID:    ownerID,
		Status:    domain.OrderPending,
		Amount:    in.Amount,
		Currency:  cur,
		Note:      strings.TrimSpace(in.Note),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		s.log.Error("create order failed", zap.Uint64("user", ownerID), zap.Error(err))
		return nil, errs.Business("ORDER_ERROR", "Order operation failed").WithCause(err)
	}
	return o, nil
}

// Get 不属于 ownerID 的订单与不存在同样处理
func (s *Service) Get(ctx context.Context, ownerID, id uint64) (*domain.Order, error) {
	o, err := s.orders.FindOwned(ctx, ownerID, id)
	if err != nil {
		s.log.Error("get order failed", zap.Uint64("id", id), zap.Error(err))
		return nil, errs.Business("ORDER_ERROR", "Order operation failed").WithCause(err)
	}
	if o == nil {
		return nil, errs.NotFound("Order")
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, ownerID uint64, q ListQuery, baseURL string) (*pagination.Result[domain.Order], error) {
	res, err := pagination.Paginate(ctx, s.orders.QueryOwned(ownerID), pagination.Options{
		Page:     q.Page,
		Limit:    q.Limit,
		MaxLimit: s.maxLimit,
		BaseURL:  baseURL,
	})
	if err != nil {
		s.log.Error("list orders failed", zap.Uint64("user", ownerID), zap.Error(err))
		return nil, errs.Business("ORDER_ERROR", "Order operation failed").WithCause(err)
	}
	return res, nil
}
