package user

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"oms-service/internal/core/errs"
	"oms-service/internal/domain"
	"oms-service/internal/repo"
)

func newService(t *testing.T, n int) (*Service, []*domain.User) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.User{}))

	r := repo.NewUserRepo(db)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	users := make([]*domain.User, 0, n)
	for i := 0; i < n; i++ {
		u := &domain.User{
			UUID:         fmt.Sprintf("uuid-%d", i),
			Email:        fmt.Sprintf("user%02d@example.com", i),
			Name:         fmt.Sprintf("User %02d", i),
			PasswordHash: "digest",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, r.Create(context.Background(), u))
		users = append(users, u)
	}
	return NewService(r, 50, nil), users
}

func TestList_Paginates(t *testing.T) {
	svc, _ := newService(t, 25)

	res, err := svc.List(context.Background(), ListQuery{Page: 1, Limit: 10}, "/api/v1/users")
	require.NoError(t, err)
	assert.EqualValues(t, 25, res.Total)
	assert.Equal(t, 3, res.LastPage)
	assert.Nil(t, res.PrevPage)
	require.NotNil(t, res.NextPage)
	assert.Equal(t, 2, *res.NextPage)
	require.Len(t, res.Results, 10)
	assert.Equal(t, "user24@example.com", res.Results[0].Email)
	require.NotNil(t, res.Links)
	assert.Equal(t, "/api/v1/users?page=3&limit=10", res.Links.Last)
}

func TestList_FilterKeepsQueryInLinks(t *testing.T) {
	svc, _ := newService(t, 12)

	res, err := svc.List(context.Background(), ListQuery{Q: "user1", Limit: 2}, "/api/v1/users")
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	assert.Equal(t, "/api/v1/users?q=user1&page=1&limit=2", res.Links.First)
}

func TestList_ClampsLimit(t *testing.T) {
	svc, _ := newService(t, 3)
	res, err := svc.List(context.Background(), ListQuery{Limit: 500}, "")
	require.NoError(t, err)
	assert.Len(t, res.Results, 3)
	assert.Nil(t, res.Links)
}

func TestBan(t *testing.T) {
	svc, users := newService(t, 3)
	ctx := context.Background()

	require.NoError(t, svc.Ban(ctx, users[0].ID))

	res, err := svc.List(ctx, ListQuery{}, "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)

	res, err = svc.List(ctx, ListQuery{WithDeleted: true}, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Total)
	var banned int
	for _, u := range res.Results {
		if u.DeletedAt != nil {
			banned++
		}
	}
	assert.Equal(t, 1, banned)

	err = svc.Ban(ctx, users[0].ID)
	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindNotFound, e.Kind)
	assert.Equal(t, "User not found", e.Message)
}
