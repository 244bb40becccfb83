// Package app 组装两个入口共用的依赖：DB、黑名单、服务与路由模块。
package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"oms-service/internal/core/auth"
	"oms-service/internal/core/cache"
	"oms-service/internal/core/config"
	"oms-service/internal/core/database"
	"oms-service/internal/core/logger"
	"oms-service/internal/domain"
	"oms-service/internal/feature/order"
	"oms-service/internal/feature/session"
	"oms-service/internal/feature/user"
	"oms-service/internal/repo"
	"oms-service/internal/transport/http/handler"
	mdw "oms-service/internal/transport/http/middleware"
	"oms-service/internal/transport/http/router"
	"oms-service/pkg/utils"
)

type App struct {
	DB      *gorm.DB
	Cache   *cache.Cache // 未配置 redis.addr 时为 nil
	Session *session.Service
	Deps    router.Deps
}

func New(cfg *config.Config, l *zap.Logger) (*App, func(), error) {
	gormLog, err := logger.ToStdLogger(l.Named("gorm"), zapcore.WarnLevel)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Writer:             gormLog,
	})
	if err != nil {
		return nil, nil, err
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(&domain.User{}, &domain.Order{}); err != nil {
			_ = database.Close(db)
			return nil, nil, err
		}
		l.Info("automigrate done")
	}

	a := &App{DB: db}
	checks := map[string]router.Check{
		"db": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	// 接口变量不能持有 typed nil，未启用时显式传 nil
	var revoker session.Revoker
	if cfg.Redis.Addr != "" {
		a.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyPrefix)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := a.Cache.Ping(ctx)
		cancel()
		if err != nil {
			l.Warn("redis unreachable, token blacklist will fail closed", zap.Error(err))
		}
		revoker = a.Cache
		checks["redis"] = a.Cache.Ping
	} else {
		l.Info("redis not configured, logout is client-side only")
	}

	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		Leeway: time.Duration(cfg.JWT.LeewaySec) * time.Second,
	}
	users := repo.NewUserRepo(db)
	a.Session = session.NewService(users, utils.Bcrypt{Cost: cfg.Auth.BcryptCost}, jwter, revoker, session.Config{
		AccessTTL:         cfg.JWT.AccessTTL(),
		RefreshTTL:        cfg.JWT.RefreshTTL(),
		PasswordMinLength: cfg.Auth.PasswordMinLength,
	}, l.Named("session"))

	mods := router.NewRegistry(
		handler.NewAuthHandler(a.Session, authGuard(cfg.App.HTTP)),
		handler.NewUserHandler(user.NewService(users, cfg.Pagination.MaxLimit, l.Named("user"))),
		handler.NewOrderHandler(order.NewService(repo.NewOrderRepo(db), cfg.Pagination.MaxLimit, l.Named("order"))),
	)
	a.Deps = router.Deps{
		Log:     l,
		HTTP:    cfg.App.HTTP,
		Authn:   a.Session,
		Modules: mods,
		Checks:  checks,
	}

	cleanup := func() {
		if a.Cache != nil {
			_ = a.Cache.Close()
		}
		_ = database.Close(db)
	}
	return a, cleanup, nil
}

// 登录/注册按 IP 限速，burst <= 0 时不挂
func authGuard(h config.HTTP) gin.HandlerFunc {
	if h.AuthRateLimitBurst <= 0 {
		return nil
	}
	return mdw.RateLimitPerIP(rate.Limit(h.AuthRateLimitRPS), h.AuthRateLimitBurst,
		time.Duration(h.AuthLimiterIdleMin)*time.Minute)
}
