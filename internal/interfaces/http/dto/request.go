package dto

import (
	"github.com/gin-gonic/gin"

	"tracehub-api/internal/domain/repository"
)

// 路由路径参数名
const (
	ParamProjectID  = "pid"
	ParamVersionID  = "vid"
	ParamArtifactID = "aid"
	ParamJobID      = "jid"
)

// PageRequest 列表查询参数 ?page=&page_size=
type PageRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// Pagination 转换为仓储分页参数，越界值被收敛
func (r PageRequest) Pagination() repository.Pagination {
	return repository.NewPagination(r.Page, r.PageSize)
}

// BindPage 绑定分页参数；无法解析的查询串按默认页处理
func BindPage(c *gin.Context) PageRequest {
	var req PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		req = PageRequest{}
	}
	p := req.Pagination()
	return PageRequest{Page: p.Page, PageSize: p.PageSize}
}

func BindProjectID(c *gin.Context) string  { return c.Param(ParamProjectID) }
func BindVersionID(c *gin.Context) string  { return c.Param(ParamVersionID) }
func BindArtifactID(c *gin.Context) string { return c.Param(ParamArtifactID) }
func BindJobID(c *gin.Context) string      { return c.Param(ParamJobID) }
