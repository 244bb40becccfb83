package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"oms-service/internal/domain"
	"oms-service/pkg/pagination"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if isDupKey(err) {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *UserRepo) FindByID(ctx context.Context, id uint64) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Save(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

// Query 按 created_at 倒序；WithDeleted 时包含已封禁用户
func (r *UserRepo) Query(f domain.UserFilter) pagination.Source[domain.User] {
	q := r.db.Model(&domain.User{})
	if f.WithDeleted {
		q = q.Unscoped()
	}
	if e := strings.TrimSpace(f.Email); e != "" {
		q = q.Where("email = ?", strings.ToLower(e))
	}
	if s := strings.TrimSpace(f.Q); s != "" {
		like := "%" + likeEscaper.Replace(s) + "%"
		q = q.Where("email LIKE ? ESCAPE '!' OR name LIKE ? ESCAPE '!'", like, like)
	}
	return pagination.Query[domain.User](q.Order("created_at DESC").Order("id DESC"))
}

// '!' 作为转义符在 mysql/postgres/sqlite 下写法一致（反斜杠在 mysql 字面量里还要再转义）
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (r *UserRepo) SoftDelete(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.User{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func isDupKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 部分驱动 TranslateError 不覆盖，兜底按文本判断
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
