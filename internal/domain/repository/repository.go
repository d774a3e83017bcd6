// Package repository 定义数据访问层接口
package repository

import (
	"context"
)

// Transactor 事务边界
// 嵌套调用时内层为保存点，内层返回错误只撤销内层写入；
// 版本化引擎依赖这一点隔离单个实体的失败
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// 列表接口的页大小约束
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination 页码从 1 开始
type Pagination struct {
	Page     int
	PageSize int
}

// NewPagination 越界的页码与页大小被收敛到合法范围
func NewPagination(page, pageSize int) Pagination {
	page = max(page, 1)
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return Pagination{Page: page, PageSize: min(pageSize, MaxPageSize)}
}

// Offset 当前页首行偏移
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit 当前页行数上限
func (p Pagination) Limit() int {
	return p.PageSize
}

// PagedResult 一页数据与总行数，总页数由接口层计算
type PagedResult[T any] struct {
	Items []T
	Total int64
}

// NewPagedResult 创建分页结果
func NewPagedResult[T any](items []T, total int64) *PagedResult[T] {
	if items == nil {
		items = []T{}
	}
	return &PagedResult[T]{Items: items, Total: total}
}
