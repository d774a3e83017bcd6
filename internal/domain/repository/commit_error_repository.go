// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"tracehub-api/internal/domain/entity"
)

// CommitErrorRepository 提交错误仓储接口
type CommitErrorRepository interface {
	// CreateBatch 批量写入
	CreateBatch(ctx context.Context, errs []*entity.CommitError) error

	// ListByProjectVersion 按创建时间列出
	ListByProjectVersion(ctx context.Context, projectVersionID string, activity entity.CommitActivity) ([]*entity.CommitError, error)
}
