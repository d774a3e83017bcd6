package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tracehub-api/internal/interfaces/http/dto"
	"tracehub-api/pkg/logger"
)

// TraceIDHeader 响应中回传的追踪 ID
const TraceIDHeader = "X-Trace-ID"

// routeParams 路径参数到日志字段与 span 属性的映射
var routeParams = []struct {
	param string
	key   logger.ContextKey
	attr  string
}{
	{dto.ParamProjectID, logger.ProjectIDKey, "tracehub.project_id"},
	{dto.ParamVersionID, logger.VersionIDKey, "tracehub.version_id"},
	{dto.ParamJobID, logger.JobIDKey, "tracehub.job_id"},
}

// Trace otelgin 埋点，探针端点不产生 span
func Trace(serviceName string, skipPaths ...string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		for _, p := range skipPaths {
			if r.URL.Path == p {
				return false
			}
		}
		return true
	}))
}

// TraceContext 把 trace_id 与路径中的项目、版本、任务 ID 写入日志上下文和 span
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)

		if sc := span.SpanContext(); sc.IsValid() {
			traceID := sc.TraceID().String()
			c.Set(dto.ContextKeyTraceID, traceID)
			ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
			ctx = logger.WithContext(ctx, logger.SpanIDKey, sc.SpanID().String())
			c.Header(TraceIDHeader, traceID)
		}

		for _, rp := range routeParams {
			if v := c.Param(rp.param); v != "" {
				ctx = logger.WithContext(ctx, rp.key, v)
				span.SetAttributes(attribute.String(rp.attr, v))
			}
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
