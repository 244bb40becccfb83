package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"oms-service/internal/core/auth"
	"oms-service/internal/core/cache"
	"oms-service/internal/core/errs"
	"oms-service/internal/domain"
	"oms-service/pkg/pagination"
	"oms-service/pkg/utils"
)

const strongPW = "Str0ng!Pass"

type memDir struct {
	mu        sync.Mutex
	users     map[uint64]*domain.User
	nextID    uint64
	findErr   error
	createErr error
	saved     int
}

func newMemDir() *memDir { return &memDir{users: map[uint64]*domain.User{}} }

func (d *memDir) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.findErr != nil {
		return nil, d.findErr
	}
	for _, u := range d.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (d *memDir) FindByID(_ context.Context, id uint64) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.findErr != nil {
		return nil, d.findErr
	}
	if u, ok := d.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (d *memDir) Create(_ context.Context, u *domain.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createErr != nil {
		return d.createErr
	}
	d.nextID++
	u.ID = d.nextID
	cp := *u
	d.users[u.ID] = &cp
	return nil
}

func (d *memDir) Save(_ context.Context, u *domain.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *u
	d.users[u.ID] = &cp
	d.saved++
	return nil
}

func (d *memDir) Query(domain.UserFilter) pagination.Source[domain.User] {
	return pagination.SourceFunc[domain.User](func(context.Context, int, int) ([]domain.User, int64, error) {
		return nil, 0, nil
	})
}

func (d *memDir) SoftDelete(_ context.Context, id uint64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.users[id]
	delete(d.users, id)
	return ok, nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time      { return c.t }
func (c *clock) Add(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	svc   *Service
	dir   *memDir
	clk   *clock
	jwter *auth.JWTer
}

func newFixture(t *testing.T, revoker Revoker) *fixture {
	t.Helper()
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	jwter := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "oms-test", Now: clk.Now}
	dir := newMemDir()
	svc := NewService(dir, utils.Bcrypt{Cost: bcrypt.MinCost}, jwter, revoker, Config{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, nil)
	svc.now = clk.Now
	return &fixture{svc: svc, dir: dir, clk: clk, jwter: jwter}
}

func (f *fixture) register(t *testing.T, email string) domain.PublicUser {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{Email: email, Password: strongPW, Name: "Test"})
	require.NoError(t, err)
	return res.User
}

func requireKind(t *testing.T, err error, kind errs.Kind, msg string) *errs.Error {
	t.Helper()
	require.Error(t, err)
	e, ok := errs.As(err)
	require.True(t, ok, "expected *errs.Error, got %T", err)
	assert.Equal(t, kind, e.Kind)
	if msg != "" {
		assert.Equal(t, msg, e.Message)
	}
	return e
}

func TestRegister_Success(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.svc.Register(context.Background(), RegisterInput{Email: "  Alice@Example.COM ", Password: strongPW, Name: "Alice"})
	require.NoError(t, err)

	assert.Equal(t, "User registered successfully", res.Message)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.NotEmpty(t, res.User.UUID)
	assert.True(t, strings.HasPrefix(res.User.UserName, "alice_"))
	assert.Equal(t, domain.RoleUser, res.User.Role)

	b, err := json.Marshal(res.User)
	require.NoError(t, err)
	assert.NotContains(t, strings.ToLower(string(b)), "password")
	assert.NotContains(t, string(b), strongPW)

	stored := f.dir.users[res.User.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, strongPW, stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(strongPW)))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "dup@example.com")

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "DUP@example.com", Password: strongPW})
	e := requireKind(t, err, errs.KindConflict, "User with this email already exists")
	assert.Equal(t, 409, e.Status())
	assert.Len(t, f.dir.users, 1)
}

func TestRegister_UniqueViolationRace(t *testing.T) {
	f := newFixture(t, nil)
	f.dir.createErr = domain.ErrEmailTaken

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "race@example.com", Password: strongPW})
	requireKind(t, err, errs.KindConflict, "User with this email already exists")
}

func TestRegister_InputRules(t *testing.T) {
	f := newFixture(t, nil)
	tests := []struct {
		name, email, pw, code string
	}{
		{"bad email", "not-an-email", strongPW, "INVALID_EMAIL"},
		{"short password", "a@example.com", "Ab1!", "WEAK_PASSWORD"},
		{"no special", "a@example.com", "Abcdefg12", "WEAK_PASSWORD"},
		{"no upper", "a@example.com", "abcdefg1!", "WEAK_PASSWORD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), RegisterInput{Email: tt.email, Password: tt.pw})
			e := requireKind(t, err, errs.KindBusiness, "")
			assert.Equal(t, tt.code, e.Code)
		})
	}
	assert.Empty(t, f.dir.users)
}

func TestRegister_UnexpectedFailure(t *testing.T) {
	f := newFixture(t, nil)
	boom := errors.New("db down")
	f.dir.findErr = boom

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "x@example.com", Password: strongPW})
	e := requireKind(t, err, errs.KindBusiness, "Registration failed")
	assert.Equal(t, "REGISTRATION_ERROR", e.Code)
	assert.ErrorIs(t, err, boom)
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t, nil)
	u := f.register(t, "bob@example.com")

	res, err := f.svc.Login(context.Background(), "Bob@Example.com", strongPW)
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
	require.NotNil(t, res.User.LastLogin)
	assert.True(t, f.clk.Now().Equal(*res.User.LastLogin))
	assert.Equal(t, 1, f.dir.saved)

	ac, err := f.jwter.Verify(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenAccess, ac.Type)
	assert.Equal(t, "bob@example.com", ac.Email)
	assert.Equal(t, u.UUID, ac.UUID)
	id, err := ac.SubjectID()
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
	assert.Equal(t, f.clk.Now().Add(15*time.Minute).Unix(), ac.ExpiresAt.Unix())

	rc, err := f.jwter.Verify(res.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenRefresh, rc.Type)
	assert.Equal(t, f.clk.Now().Add(7*24*time.Hour).Unix(), rc.ExpiresAt.Unix())
	assert.NotEqual(t, ac.ID, rc.ID)
}

func TestLogin_IdenticalFailureMessage(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "carol@example.com")

	_, wrongPW := f.svc.Login(context.Background(), "carol@example.com", "Wr0ng!Pass")
	_, noUser := f.svc.Login(context.Background(), "nobody@example.com", strongPW)

	a := requireKind(t, wrongPW, errs.KindUnauthorized, "Invalid email or password")
	b := requireKind(t, noUser, errs.KindUnauthorized, "Invalid email or password")
	assert.Equal(t, a.Message, b.Message)
	assert.Equal(t, a.Code, b.Code)
}

func TestLogin_MissingCredentials(t *testing.T) {
	f := newFixture(t, nil)
	for _, in := range [][2]string{{"", strongPW}, {"a@example.com", ""}, {"   ", ""}} {
		_, err := f.svc.Login(context.Background(), in[0], in[1])
		e := requireKind(t, err, errs.KindBusiness, "Email and password are required")
		assert.Equal(t, "MISSING_CREDENTIALS", e.Code)
	}
}

func TestLogin_UnexpectedFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.dir.findErr = errors.New("timeout")

	_, err := f.svc.Login(context.Background(), "a@example.com", strongPW)
	e := requireKind(t, err, errs.KindBusiness, "Login failed")
	assert.Equal(t, "LOGIN_ERROR", e.Code)
}

func TestRefreshToken(t *testing.T) {
	f := newFixture(t, nil)
	u := f.register(t, "dave@example.com")
	login, err := f.svc.Login(context.Background(), "dave@example.com", strongPW)
	require.NoError(t, err)

	f.clk.Add(time.Hour)
	access, err := f.svc.RefreshToken(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	c, err := f.jwter.Verify(access)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenAccess, c.Type)
	assert.Equal(t, auth.SubjectOf(u.ID), c.Subject)
	assert.Equal(t, f.clk.Now().Add(15*time.Minute).Unix(), c.ExpiresAt.Unix())
}

func TestRefreshToken_Failures(t *testing.T) {
	f := newFixture(t, nil)
	u := f.register(t, "erin@example.com")
	login, err := f.svc.Login(context.Background(), "erin@example.com", strongPW)
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		_, err := f.svc.RefreshToken(context.Background(), " ")
		e := requireKind(t, err, errs.KindBusiness, "Refresh token is required")
		assert.Equal(t, "MISSING_REFRESH_TOKEN", e.Code)
	})
	t.Run("tampered", func(t *testing.T) {
		tok := login.RefreshToken[:len(login.RefreshToken)-2] + "xx"
		_, err := f.svc.RefreshToken(context.Background(), tok)
		requireKind(t, err, errs.KindUnauthorized, "Invalid refresh token")
	})
	t.Run("malformed", func(t *testing.T) {
		_, err := f.svc.RefreshToken(context.Background(), "not.a.jwt")
		requireKind(t, err, errs.KindUnauthorized, "Invalid refresh token")
	})
	t.Run("access token presented", func(t *testing.T) {
		_, err := f.svc.RefreshToken(context.Background(), login.AccessToken)
		requireKind(t, err, errs.KindUnauthorized, "Invalid refresh token")
	})
	t.Run("user gone", func(t *testing.T) {
		_, _ = f.dir.SoftDelete(context.Background(), u.ID)
		_, err := f.svc.RefreshToken(context.Background(), login.RefreshToken)
		requireKind(t, err, errs.KindNotFound, "User not found")
	})
	t.Run("expired", func(t *testing.T) {
		f.clk.Add(8 * 24 * time.Hour)
		_, err := f.svc.RefreshToken(context.Background(), login.RefreshToken)
		requireKind(t, err, errs.KindUnauthorized, "Refresh token expired")
	})
}

func TestValidateUserByID(t *testing.T) {
	f := newFixture(t, nil)
	u := f.register(t, "frank@example.com")

	got, err := f.svc.ValidateUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = f.svc.ValidateUserByID(context.Background(), 999)
	requireKind(t, err, errs.KindNotFound, "User not found")

	f.dir.findErr = errors.New("db down")
	_, err = f.svc.ValidateUserByID(context.Background(), u.ID)
	e := requireKind(t, err, errs.KindBusiness, "User validation failed")
	assert.Equal(t, "USER_VALIDATION_ERROR", e.Code)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t, nil)
	u := f.register(t, "gina@example.com")
	login, err := f.svc.Login(context.Background(), "gina@example.com", strongPW)
	require.NoError(t, err)

	p, err := f.svc.Authenticate(context.Background(), login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.User.ID)
	assert.Equal(t, "gina@example.com", p.Claims.Email)

	_, err = f.svc.Authenticate(context.Background(), "garbage")
	requireKind(t, err, errs.KindUnauthorized, "Invalid token")

	_, err = f.svc.Authenticate(context.Background(), login.RefreshToken)
	requireKind(t, err, errs.KindUnauthorized, "Invalid token")

	f.clk.Add(16 * time.Minute)
	_, err = f.svc.Authenticate(context.Background(), login.AccessToken)
	requireKind(t, err, errs.KindUnauthorized, "Token expired")
}

func TestAuthenticate_UserRemoved(t *testing.T) {
	f := newFixture(t, nil)
	u := f.register(t, "hank@example.com")
	login, err := f.svc.Login(context.Background(), "hank@example.com", strongPW)
	require.NoError(t, err)

	_, _ = f.dir.SoftDelete(context.Background(), u.ID)
	_, err = f.svc.Authenticate(context.Background(), login.AccessToken)
	requireKind(t, err, errs.KindUnauthorized, "Invalid token or user does not exist")
}

func TestLogout_RevokesTokens(t *testing.T) {
	mr := miniredis.RunT(t)
	bl := cache.New(mr.Addr(), "", 0, "test:")
	t.Cleanup(func() { _ = bl.Close() })

	f := newFixture(t, bl)
	f.register(t, "ivy@example.com")
	login, err := f.svc.Login(context.Background(), "ivy@example.com", strongPW)
	require.NoError(t, err)

	p, err := f.svc.Authenticate(context.Background(), login.AccessToken)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(context.Background(), p, login.RefreshToken))

	_, err = f.svc.Authenticate(context.Background(), login.AccessToken)
	requireKind(t, err, errs.KindUnauthorized, "Token has been revoked")

	_, err = f.svc.RefreshToken(context.Background(), login.RefreshToken)
	requireKind(t, err, errs.KindUnauthorized, "Invalid refresh token")

	// 黑名单条目随 token 过期
	ttl := mr.TTL("test:revoked:" + p.Claims.ID)
	assert.Equal(t, 15*time.Minute, ttl)
}

func TestLogout_ForeignRefreshTokenIgnored(t *testing.T) {
	mr := miniredis.RunT(t)
	bl := cache.New(mr.Addr(), "", 0, "test:")
	t.Cleanup(func() { _ = bl.Close() })

	f := newFixture(t, bl)
	f.register(t, "jo@example.com")
	f.register(t, "kim@example.com")
	jo, err := f.svc.Login(context.Background(), "jo@example.com", strongPW)
	require.NoError(t, err)
	kim, err := f.svc.Login(context.Background(), "kim@example.com", strongPW)
	require.NoError(t, err)

	p, err := f.svc.Authenticate(context.Background(), jo.AccessToken)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(context.Background(), p, kim.RefreshToken))

	_, err = f.svc.RefreshToken(context.Background(), kim.RefreshToken)
	assert.NoError(t, err)
}

func TestLogout_WithoutBlacklist(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "lee@example.com")
	login, err := f.svc.Login(context.Background(), "lee@example.com", strongPW)
	require.NoError(t, err)
	p, err := f.svc.Authenticate(context.Background(), login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), p, login.RefreshToken))
	_, err = f.svc.Authenticate(context.Background(), login.AccessToken)
	assert.NoError(t, err)
}

type brokenRevoker struct{}

func (brokenRevoker) Revoke(context.Context, string, time.Duration) error { return errors.New("redis down") }
func (brokenRevoker) IsRevoked(context.Context, string) (bool, error)     { return false, errors.New("redis down") }

func TestAuthenticate_BlacklistUnavailable(t *testing.T) {
	f := newFixture(t, brokenRevoker{})
	f.register(t, "max@example.com")
	login, err := f.svc.Login(context.Background(), "max@example.com", strongPW)
	require.NoError(t, err)

	_, err = f.svc.Authenticate(context.Background(), login.AccessToken)
	e := requireKind(t, err, errs.KindUnavailable, "")
	assert.Equal(t, 503, e.Status())
}
