package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

type Claims struct {
	Email    string    `json:"email"`
	UUID     string    `json:"uuid"`
	UserName string    `json:"username,omitempty"`
	Type     TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// SubjectID sub 中存放的是用户主键
func (c *Claims) SubjectID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

func SubjectOf(id uint64) string { return strconv.FormatUint(id, 10) }

type FailureKind int

const (
	FailureInvalid FailureKind = iota + 1
	FailureExpired
	FailureMalformed
)

func (k FailureKind) String() string {
	switch k {
	case FailureExpired:
		return "expired"
	case FailureMalformed:
		return "malformed"
	default:
		return "invalid"
	}
}

// VerifyError 校验失败的闭合分类，调用方按 Kind 分支，不做字符串匹配
type VerifyError struct {
	Kind FailureKind
	Err  error
}

func (e *VerifyError) Error() string { return "token " + e.Kind.String() + ": " + e.Err.Error() }
func (e *VerifyError) Unwrap() error { return e.Err }

// FailureOf 非 VerifyError 一律视为 invalid
func FailureOf(err error) FailureKind {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return FailureInvalid
}

type JWTer struct {
	Secret []byte
	Issuer string
	Leeway time.Duration
	Now    func() time.Time // 测试注入；nil 用 time.Now
}

func (j *JWTer) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// Sign 填充 iss/iat/exp/jti 后签发 HS256
func (j *JWTer) Sign(c Claims, ttl time.Duration) (string, error) {
	now := j.now()
	c.Issuer = j.Issuer
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(j.Secret)
}

func (j *JWTer) Verify(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}
	if j.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(j.Leeway))
	}

	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, opts...)
	if err != nil {
		return nil, classify(err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, &VerifyError{Kind: FailureInvalid, Err: errors.New("invalid token")}
	}
	return c, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &VerifyError{Kind: FailureExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &VerifyError{Kind: FailureMalformed, Err: err}
	default:
		return &VerifyError{Kind: FailureInvalid, Err: err}
	}
}
