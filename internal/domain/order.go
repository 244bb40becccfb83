package domain

import (
	"context"
	"time"

	"oms-service/pkg/pagination"
)

const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderCancelled = "cancelled"
)

type Order struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID      string    `gorm:"size:36;uniqueIndex" json:"uuid"`
	Reference string    `gorm:"size:32;uniqueIndex" json:"reference"`
	UserID    uint64    `gorm:"index;not null" json:"userId"`
	Status    string    `gorm:"size:16;default:pending" json:"status"`
	Amount    int64     `gorm:"not null" json:"amount"` // 最小货币单位
	Currency  string    `gorm:"size:3;not null" json:"currency"`
	Note      string    `gorm:"size:255" json:"note"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type OrderRepository interface {
	Create(ctx context.Context, o *Order) error
	// FindOwned 只返回属于 userID 的订单，查不到返回 (nil, nil)
	FindOwned(ctx context.Context, userID, id uint64) (*Order, error)
	QueryOwned(userID uint64) pagination.Source[Order]
}
