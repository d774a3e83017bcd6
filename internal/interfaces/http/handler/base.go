package handler

import (
	"github.com/gin-gonic/gin"

	"tracehub-api/internal/interfaces/http/dto"
	"tracehub-api/pkg/errors"
	"tracehub-api/pkg/logger"
)

// writeError 4xx 应用错误原样返回，其余错误记录日志后以 fallback 文案返回 500
func writeError(c *gin.Context, err error, fallback string) {
	if errors.IsAppError(err) {
		if appErr := errors.AsAppError(err); appErr.HTTPStatus < 500 {
			dto.Fail(c, appErr)
			return
		}
	}
	logger.Error(c.Request.Context(), fallback, err)
	dto.InternalError(c, fallback)
}
