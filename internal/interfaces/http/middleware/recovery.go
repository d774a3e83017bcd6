package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"tracehub-api/internal/interfaces/http/dto"
	"tracehub-api/pkg/logger"
)

// Recovery 捕获 handler 中的 panic，记录堆栈并返回统一的 500 响应
// 需注册在 RequestID 之后，日志与响应才带有请求 ID
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error(c.Request.Context(), "panic recovered", fmt.Errorf("%v", rec),
				"route", c.FullPath(),
				"method", c.Request.Method,
				"stack", string(debug.Stack()),
			)
			if !c.Writer.Written() {
				dto.InternalError(c, "internal server error")
			}
			c.Abort()
		}()
		c.Next()
	}
}
