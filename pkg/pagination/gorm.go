package pagination

import (
	"context"

	"gorm.io/gorm"
)

// Query 把已经带好 Where/Order 的 gorm 查询包装成 Source。
// Count 与 Find 共用同一个作用域，分别在各自的 Session 上执行。
func Query[T any](q *gorm.DB) Source[T] {
	return SourceFunc[T](func(ctx context.Context, offset, limit int) ([]T, int64, error) {
		base := q.WithContext(ctx)
		var total int64
		if err := base.Session(&gorm.Session{}).Model(new(T)).Count(&total).Error; err != nil {
			return nil, 0, err
		}
		if total == 0 || offset < 0 || limit <= 0 || int64(offset) >= total {
			return []T{}, total, nil
		}
		// 按实际剩余行数预分配，不信任调用方的 limit
		items := make([]T, 0, min(int64(limit), total-int64(offset)))
		if err := base.Session(&gorm.Session{}).Offset(offset).Limit(limit).Find(&items).Error; err != nil {
			return nil, 0, err
		}
		return items, total, nil
	})
}
