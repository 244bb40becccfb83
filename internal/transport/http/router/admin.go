package router

import (
	"github.com/gin-gonic/gin"

	"oms-service/internal/transport/http/ez"
)

// NewAdminEngine 管理端 /admin/v1，各动作自身声明 admin 角色
func NewAdminEngine(d Deps) *gin.Engine {
	r := newEngine(d)
	admin := r.Group("/admin/v1")
	d.Modules.MountAdmin(ez.New(admin, d.Authn))
	return r
}
