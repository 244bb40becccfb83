package router

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"oms-service/internal/core/config"
	"oms-service/internal/core/errs"
	"oms-service/internal/core/server"
	"oms-service/internal/transport/http/ez"
	mdw "oms-service/internal/transport/http/middleware"
	resp "oms-service/internal/transport/http/response"
)

// Check 健康检查项（DB ping / Redis ping）
type Check func(ctx context.Context) error

type Deps struct {
	Log     *zap.Logger
	HTTP    config.HTTP
	Authn   mdw.Authenticator
	Modules *Registry
	Checks  map[string]Check
}

func NewAPIEngine(d Deps) *gin.Engine {
	r := newEngine(d)
	api := r.Group("/api/v1")
	d.Modules.MountAPI(ez.New(api, d.Authn))
	return r
}

func newEngine(d Deps) *gin.Engine {
	r := server.NewRouter(d.Log, server.Options{CORSOrigins: d.HTTP.CORSOrigins, OnPanic: resp.Panic})

	// request-id → 限速 → 并发 → body 上限 → 超时 → 指标 → 访问日志
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(orDefault(d.HTTP.RateLimitRPS, 200)), int(orDefault(float64(d.HTTP.RateLimitBurst), 400))),
		mdw.ConcurrencyLimit(int64(orDefault(float64(d.HTTP.MaxInFlight), 300)), 0),
		mdw.MaxBodyBytes(int64(orDefault(float64(d.HTTP.MaxBodyMB), 16))<<20),
		mdw.Timeout(time.Duration(orDefault(float64(d.HTTP.RequestTimeoutSec), 10))*time.Second),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)
	r.NoRoute(resp.NoRoute)

	r.GET("/health", health(d.Checks))
	r.GET("/metrics", mdw.MetricsHandler())
	return r
}

const healthTimeout = 3 * time.Second

type probe struct {
	status map[string]string
	down   []string
	failed error
}

func health(checks map[string]Check) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	// 并发探活合并成一次检查
	var sf singleflight.Group
	run := func(ctx context.Context) *probe {
		p := &probe{status: make(map[string]string, len(names))}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				p.status[name] = "down"
				p.down = append(p.down, name+" is down")
				p.failed = err
				continue
			}
			p.status[name] = "up"
		}
		return p
	}

	return func(c *gin.Context) {
		v, _, _ := sf.Do("health", func() (any, error) {
			// 与发起者的连接解耦，结果会共享给同一批请求
			ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), healthTimeout)
			defer cancel()
			return run(ctx), nil
		})
		p := v.(*probe)
		if p.failed != nil {
			e := errs.Unavailable("")
			e.Details = p.down
			resp.Fail(c, e.WithCause(p.failed))
			return
		}
		resp.OK(c, http.StatusOK, "OK", gin.H{"status": "ok", "checks": p.status})
	}
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
