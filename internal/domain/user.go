package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"oms-service/pkg/pagination"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var ErrEmailTaken = errors.New("email already taken")

type User struct {
	ID              uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID            string         `gorm:"size:36;uniqueIndex" json:"uuid"`
	Email           string         `gorm:"uniqueIndex;size:191;not null" json:"email"`
	PasswordHash    string         `gorm:"size:191;not null" json:"-"`
	Name            string         `gorm:"size:128" json:"name"`
	UserName        string         `gorm:"size:64" json:"userName"`
	FirstName       string         `gorm:"size:64" json:"firstName"`
	LastName        string         `gorm:"size:64" json:"lastName"`
	Slug            string         `gorm:"size:128" json:"slug"`
	Thumbnail       string         `gorm:"size:255;default:default.png" json:"thumbnail"`
	Address         string         `gorm:"size:255" json:"address"`
	City            string         `gorm:"size:64" json:"city"`
	State           string         `gorm:"size:64" json:"state"`
	ZipCode         string         `gorm:"size:16" json:"zipCode"`
	DOB             *time.Time     `json:"dob"`
	Gender          string         `gorm:"size:16" json:"gender"`
	MaritalStatus   string         `gorm:"size:16" json:"maritalStatus"`
	Phone           string         `gorm:"size:32" json:"phone"`
	EmailVerifiedAt *time.Time     `json:"emailVerifiedAt"`
	Role            string         `gorm:"size:16;default:user" json:"role"` // user / admin
	LastLogin       *time.Time     `json:"lastLogin"`
	CreatedAt       time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// PublicUser 对外视图：不含密码摘要
type PublicUser struct {
	ID              uint64     `json:"id"`
	UUID            string     `json:"uuid"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	UserName        string     `json:"userName"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Slug            string     `json:"slug"`
	Thumbnail       string     `json:"thumbnail"`
	Address         string     `json:"address"`
	City            string     `json:"city"`
	State           string     `json:"state"`
	ZipCode         string     `json:"zipCode"`
	DOB             *time.Time `json:"dob"`
	Gender          string     `json:"gender"`
	MaritalStatus   string     `json:"maritalStatus"`
	Phone           string     `json:"phone"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt"`
	Role            string     `json:"role"`
	LastLogin       *time.Time `json:"lastLogin"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty"`
}

func (u *User) Public() PublicUser {
	p := PublicUser{
		ID:              u.ID,
		UUID:            u.UUID,
		Email:           u.Email,
		Name:            u.Name,
		UserName:        u.UserName,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Slug:            u.Slug,
		Thumbnail:       u.Thumbnail,
		Address:         u.Address,
		City:            u.City,
		State:           u.State,
		ZipCode:         u.ZipCode,
		DOB:             u.DOB,
		Gender:          u.Gender,
		MaritalStatus:   u.MaritalStatus,
		Phone:           u.Phone,
		EmailVerifiedAt: u.EmailVerifiedAt,
		Role:            u.Role,
		LastLogin:       u.LastLogin,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
	if u.DeletedAt.Valid {
		t := u.DeletedAt.Time
		p.DeletedAt = &t
	}
	return p
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

type UserFilter struct {
	Email       string // 精确匹配
	Q           string // email / name 模糊
	WithDeleted bool
}

// UserDirectory 查不到时返回 (nil, nil)
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uint64) (*User, error)
	// Create 邮箱冲突返回 ErrEmailTaken
	Create(ctx context.Context, u *User) error
	Save(ctx context.Context, u *User) error
	Query(f UserFilter) pagination.Source[User]
	// SoftDelete 返回是否有记录被删除
	SoftDelete(ctx context.Context, id uint64) (bool, error)
}
