package middleware

import (
	"context"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"oms-service/internal/core/errs"
	"oms-service/internal/feature/session"
	resp "oms-service/internal/transport/http/response"
)

const KeyPrincipal = "principal"

type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*session.Principal, error)
}

// AuthJWT 校验 Bearer token；roles 非空时要求当前用户角色在其中
func AuthJWT(a Authenticator, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			resp.Fail(c, errs.Unauthorized(""))
			return
		}
		p, err := a.Authenticate(c.Request.Context(), tok)
		if err != nil {
			resp.Fail(c, err)
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, p.User.Role) {
			resp.Fail(c, errs.Forbidden(""))
			return
		}
		c.Set(KeyPrincipal, p)
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) *session.Principal {
	v, ok := c.Get(KeyPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*session.Principal)
	return p
}

func bearerToken(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}
