package user

import (
	"context"

	"go.uber.org/zap"

	"oms-service/internal/core/errs"
	"oms-service/internal/domain"
	"oms-service/pkg/pagination"
)

type ListQuery struct {
	Page        int    `form:"page"`
	Limit       int    `form:"limit"`
	Email       string `form:"email" binding:"omitempty,email"`
	Q           string `form:"q" binding:"omitempty,max=64"`
	WithDeleted bool   `form:"with_deleted"`
}

type Service struct {
	users    domain.UserDirectory
	maxLimit int
	log      *zap.Logger
}

func NewService(users domain.UserDirectory, maxLimit int, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{users: users, maxLimit: maxLimit, log: l}
}

// List baseURL 非空时结果带 links；WithDeleted 由调用方按角色决定是否放行
func (s *Service) List(ctx context.Context, q ListQuery, baseURL string) (*pagination.Result[domain.PublicUser], error) {
	extra := map[string]string{}
	if q.Email != "" {
		extra["email"] = q.Email
	}
	if q.Q != "" {
		extra["q"] = q.Q
	}
	if q.WithDeleted {
		extra["with_deleted"] = "true"
	}

	src := s.users.Query(domain.UserFilter{Email: q.Email, Q: q.Q, WithDeleted: q.WithDeleted})
	res, err := pagination.Paginate(ctx, src, pagination.Options{
		Page:     q.Page,
		Limit:    q.Limit,
		MaxLimit: s.maxLimit,
		BaseURL:  baseURL,
		Query:    extra,
	})
	if err != nil {
		s.log.Error("list users failed", zap.Error(err))
		return nil, errs.Business("USER_LIST_ERROR", "Failed to list users").WithCause(err)
	}
	return pagination.Map(res, func(u domain.User) domain.PublicUser { return u.Public() }), nil
}

// Ban 软删除，之后该用户无法再通过鉴权
func (s *Service) Ban(ctx context.Context, id uint64) error {
	ok, err := s.users.SoftDelete(ctx, id)
	if err != nil {
		s.log.Error("ban user failed", zap.Uint64("id", id), zap.Error(err))
		return errs.Business("USER_BAN_ERROR", "Failed to ban user").WithCause(err)
	}
	if !ok {
		return errs.NotFound("User")
	}
	s.log.Info("user banned", zap.Uint64("id", id))
	return nil
}
