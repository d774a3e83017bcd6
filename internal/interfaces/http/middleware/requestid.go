package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tracehub-api/internal/interfaces/http/dto"
	"tracehub-api/pkg/logger"
)

// RequestIDHeader 请求 ID 头，异步任务消息会带上同一个值
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 64

// RequestID 沿用调用方传入的请求 ID，缺失或不合法时生成 UUID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		c.Set(dto.ContextKeyRequestID, id)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), logger.RequestIDKey, id))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// validRequestID 只接受可打印 ASCII，避免把控制字符写进日志
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
