package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"oms-service/internal/domain"
	"oms-service/pkg/pagination"
)

type OrderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrderRepo) FindOwned(ctx context.Context, userID, id uint64) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).First(&o, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) QueryOwned(userID uint64) pagination.Source[domain.Order] {
	q := r.db.Model(&domain.Order{}).Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC")
	return pagination.Query[domain.Order](q)
}
