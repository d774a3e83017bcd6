// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"tracehub-api/internal/infrastructure/persistence/postgres"
	"tracehub-api/internal/infrastructure/persistence/redis"
)

// readyTimeout 单次就绪检查的总时限
const readyTimeout = 2 * time.Second

// dependency 就绪检查依赖的外部组件；check 为 nil 表示未装配
type dependency struct {
	name  string
	check func(ctx context.Context) error
}

// HealthHandler 探针端点：/health、/live 只反映进程状态，/ready 检查 Postgres 与 Redis
type HealthHandler struct {
	version string
	deps    []dependency
}

// NewHealthHandler 版本与项目数据都在 Postgres，快照缓存与任务流都在 Redis，两者缺一即不就绪
func NewHealthHandler(pg *postgres.Client, redisClient *redis.Client, version string) *HealthHandler {
	h := &HealthHandler{version: version}
	pgDep := dependency{name: "postgres"}
	if pg != nil {
		pgDep.check = pg.HealthCheck
	}
	redisDep := dependency{name: "redis"}
	if redisClient != nil {
		redisDep.check = redisClient.HealthCheck
	}
	h.deps = []dependency{pgDep, redisDep}
	return h
}

// HealthResponse 存活响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// DependencyStatus 单个依赖的检查结果
type DependencyStatus struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// ReadyResponse 就绪响应
type ReadyResponse struct {
	Status string                       `json:"status"`
	Checks map[string]*DependencyStatus `json:"checks"`
}

// Health 进程存活并返回版本号
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Ready 并发检查全部依赖，任一失败返回 503
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} ReadyResponse
// @Failure 503 {object} ReadyResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	results := make([]*DependencyStatus, len(h.deps))
	var g errgroup.Group
	for i, dep := range h.deps {
		g.Go(func() error {
			results[i] = probe(ctx, dep)
			return nil
		})
	}
	_ = g.Wait()

	resp := ReadyResponse{Status: "ok", Checks: make(map[string]*DependencyStatus, len(h.deps))}
	for i, dep := range h.deps {
		resp.Checks[dep.name] = results[i]
		if results[i].Status != "ok" {
			resp.Status = "not_ready"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func probe(ctx context.Context, dep dependency) *DependencyStatus {
	if dep.check == nil {
		return &DependencyStatus{Status: "missing", Error: dep.name + " client not configured"}
	}
	start := time.Now()
	err := dep.check(ctx)
	st := &DependencyStatus{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		st.Status = "error"
		st.Error = err.Error()
	}
	return st
}

// Live 存活探针
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
