// Package session 注册、登录、令牌签发/刷新与登出。
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"oms-service/internal/core/auth"
	"oms-service/internal/core/errs"
	"oms-service/internal/domain"
	"oms-service/pkg/utils"
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(plain, digest string) bool
}

type TokenIssuer interface {
	Sign(c auth.Claims, ttl time.Duration) (string, error)
	Verify(token string) (*auth.Claims, error)
}

// Revoker token 黑名单，按 jti 记录
type Revoker interface {
	Revoke(ctx context.Context, id string, ttl time.Duration) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}

type Config struct {
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	PasswordMinLength int
}

// Principal 通过鉴权的当前用户，显式传给 handler
type Principal struct {
	User   *domain.User
	Claims *auth.Claims
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type RegisterResult struct {
	Message string
	User    domain.PublicUser
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         domain.PublicUser
}

type Service struct {
	users   domain.UserDirectory
	hasher  PasswordHasher
	tokens  TokenIssuer
	revoker Revoker // 可为 nil：不启用黑名单
	cfg     Config
	log     *zap.Logger
	now     func() time.Time
}

func NewService(users domain.UserDirectory, hasher PasswordHasher, tokens TokenIssuer, revoker Revoker, cfg Config, l *zap.Logger) *Service {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{users: users, hasher: hasher, tokens: tokens, revoker: revoker, cfg: cfg, log: l, now: time.Now}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	res, err := s.register(ctx, in)
	if err != nil {
		if errs.KindOf(err) == errs.KindInternal {
			s.log.Error("registration error", zap.Error(err))
		}
		return nil, errs.Rewrap(err, "REGISTRATION_ERROR", "Registration failed", errs.KindBusiness, errs.KindConflict)
	}
	return res, nil
}

func (s *Service) register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email := normalizeEmail(in.Email)
	if !utils.IsValidEmail(email) {
		return nil, errs.Business("INVALID_EMAIL", "Invalid email format")
	}
	if !utils.IsStrongPassword(in.Password, s.cfg.PasswordMinLength) {
		return nil, errs.Business("WEAK_PASSWORD",
			"Password must be at least 8 characters long and contain uppercase, lowercase, numbers, and special characters")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errs.Conflict("User with this email already exists")
	}

	u, err := s.newUser(email, in.Password, in.Name)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, errs.Conflict("User with this email already exists")
		}
		return nil, err
	}
	return &RegisterResult{Message: "User registered successfully", User: u.Public()}, nil
}

// newUser 入库前完成哈希，明文密码不会到达 Directory
func (s *Service) newUser(email, password, name string) (*domain.User, error) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		UUID:         utils.NewUUID(),
		Email:        email,
		PasswordHash: digest,
		Name:         strings.TrimSpace(name),
		UserName:     utils.UsernameFromEmail(email),
		Thumbnail:    "default.png",
		Role:         domain.RoleUser,
	}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	res, err := s.login(ctx, email, password)
	if err != nil {
		if errs.KindOf(err) == errs.KindInternal {
			s.log.Error("login error", zap.Error(err))
		}
		return nil, errs.Rewrap(err, "LOGIN_ERROR", "Login failed", errs.KindBusiness, errs.KindUnauthorized)
	}
	return res, nil
}

func (s *Service) login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, errs.Business("MISSING_CREDENTIALS", "Email and password are required")
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	// 用户不存在与密码错误返回同一条消息
	if u == nil || !s.hasher.Compare(password, u.PasswordHash) {
		return nil, errs.Unauthorized("Invalid email or password")
	}

	access, err := s.tokens.Sign(claimsOf(u, auth.TokenAccess), s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.Sign(claimsOf(u, auth.TokenRefresh), s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u.LastLogin = &now
	if err := s.users.Save(ctx, u); err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: u.Public()}, nil
}

// RefreshToken 只换发 access token，refresh token 不轮换
func (s *Service) RefreshToken(ctx context.Context, token string) (string, error) {
	access, err := s.refresh(ctx, token)
	if err != nil {
		if errs.KindOf(err) == errs.KindInternal {
			s.log.Error("token refresh error", zap.Error(err))
		}
		return "", errs.Rewrap(err, "TOKEN_REFRESH_ERROR", "Token refresh failed",
			errs.KindBusiness, errs.KindUnauthorized, errs.KindNotFound)
	}
	return access, nil
}

func (s *Service) refresh(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", errs.Business("MISSING_REFRESH_TOKEN", "Refresh token is required")
	}
	c, err := s.tokens.Verify(token)
	if err != nil {
		if auth.FailureOf(err) == auth.FailureExpired {
			return "", errs.Unauthorized("Refresh token expired").WithCause(err)
		}
		return "", errs.Unauthorized("Invalid refresh token").WithCause(err)
	}
	if c.Type != auth.TokenRefresh {
		return "", errs.Unauthorized("Invalid refresh token")
	}
	revoked, err := s.isRevoked(ctx, c.ID)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", errs.Unauthorized("Invalid refresh token")
	}

	id, err := c.SubjectID()
	if err != nil {
		return "", errs.Unauthorized("Invalid refresh token").WithCause(err)
	}
	u, err := s.ValidateUserByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.tokens.Sign(claimsOf(u, auth.TokenAccess), s.cfg.AccessTTL)
}

func (s *Service) ValidateUserByID(ctx context.Context, id uint64) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		s.log.Error("user validation error", zap.Uint64("id", id), zap.Error(err))
		return nil, errs.Business("USER_VALIDATION_ERROR", "User validation failed").WithCause(err)
	}
	if u == nil {
		return nil, errs.NotFound("User")
	}
	return u, nil
}

// Authenticate 校验 access token 并确认 sub 对应的用户仍然存在
func (s *Service) Authenticate(ctx context.Context, bearer string) (*Principal, error) {
	c, err := s.tokens.Verify(bearer)
	if err != nil {
		if auth.FailureOf(err) == auth.FailureExpired {
			return nil, errs.Unauthorized("Token expired").WithCause(err)
		}
		return nil, errs.Unauthorized("Invalid token").WithCause(err)
	}
	if c.Type != auth.TokenAccess {
		return nil, errs.Unauthorized("Invalid token")
	}

	revoked, err := s.isRevoked(ctx, c.ID)
	if err != nil {
		// 黑名单不可用时拒绝请求
		return nil, errs.Unavailable("").WithCause(err)
	}
	if revoked {
		return nil, errs.Unauthorized("Token has been revoked")
	}

	id, err := c.SubjectID()
	if err != nil {
		return nil, errs.Unauthorized("Invalid token").WithCause(err)
	}
	u, err := s.ValidateUserByID(ctx, id)
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			return nil, errs.Unauthorized("Invalid token or user does not exist")
		}
		return nil, err
	}
	return &Principal{User: u, Claims: c}, nil
}

// Logout 未配置黑名单时为空操作，由客户端丢弃 token
func (s *Service) Logout(ctx context.Context, p *Principal, refreshToken string) error {
	if s.revoker == nil || p == nil || p.Claims == nil {
		return nil
	}
	if err := s.revoke(ctx, p.Claims); err != nil {
		return errs.Unavailable("").WithCause(err)
	}
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}

	rc, err := s.tokens.Verify(refreshToken)
	if err != nil || rc.Type != auth.TokenRefresh || rc.Subject != p.Claims.Subject {
		s.log.Debug("logout: refresh token ignored", zap.Error(err))
		return nil
	}
	if err := s.revoke(ctx, rc); err != nil {
		return errs.Unavailable("").WithCause(err)
	}
	return nil
}

func (s *Service) revoke(ctx context.Context, c *auth.Claims) error {
	if c.ExpiresAt == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, c.ID, c.ExpiresAt.Sub(s.now()))
}

func (s *Service) isRevoked(ctx context.Context, jti string) (bool, error) {
	if s.revoker == nil {
		return false, nil
	}
	return s.revoker.IsRevoked(ctx, jti)
}

func claimsOf(u *domain.User, t auth.TokenType) auth.Claims {
	c := auth.Claims{Email: u.Email, UUID: u.UUID, UserName: u.UserName, Type: t}
	c.Subject = auth.SubjectOf(u.ID)
	return c
}
