// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"tracehub-api/internal/domain/entity"
)

// JobRepository 提交任务仓储接口
type JobRepository interface {
	// Create 创建任务
	Create(ctx context.Context, job *entity.Job) error

	// GetByID 根据 ID 获取任务
	GetByID(ctx context.Context, id string) (*entity.Job, error)

	// Update 更新任务
	Update(ctx context.Context, job *entity.Job) error

	// UpdateProgress 更新当前步骤与进度（0-100）
	UpdateProgress(ctx context.Context, id, step string, progress int) error

	// ListByProjectVersion 按创建时间倒序列出
	ListByProjectVersion(ctx context.Context, projectVersionID string, pagination Pagination) (*PagedResult[*entity.Job], error)
}
