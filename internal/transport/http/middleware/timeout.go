package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"oms-service/internal/core/errs"
	resp "oms-service/internal/transport/http/response"
)

func TimeoutError() *errs.Error {
	e := errs.Unavailable(resp.MsgTimeout)
	e.Code = resp.CodeTimeout
	return e
}

// Timeout 给下游（DB/Redis）一个截止时间；handler 未写响应时补 503
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			resp.Fail(c, TimeoutError())
		}
	}
}
