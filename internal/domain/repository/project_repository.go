// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"tracehub-api/internal/domain/entity"
)

// ProjectRepository 项目仓储接口
type ProjectRepository interface {
	// Create 创建项目
	Create(ctx context.Context, project *entity.Project) error

	// GetByID 根据 ID 获取项目
	GetByID(ctx context.Context, id string) (*entity.Project, error)

	// List 获取项目列表
	List(ctx context.Context, pagination Pagination) (*PagedResult[*entity.Project], error)

	// LockForUpdate 在当前事务中锁定项目行，串行化同一项目的提交
	LockForUpdate(ctx context.Context, id string) error
}

// ProjectVersionRepository 项目版本仓储接口
type ProjectVersionRepository interface {
	// Create 创建版本
	Create(ctx context.Context, version *entity.ProjectVersion) error

	// GetByID 根据 ID 获取版本
	GetByID(ctx context.Context, id string) (*entity.ProjectVersion, error)

	// GetLatest 获取项目最新版本，没有版本时返回 nil
	GetLatest(ctx context.Context, projectID string) (*entity.ProjectVersion, error)

	// ListByProject 按版本升序列出
	ListByProject(ctx context.Context, projectID string) ([]*entity.ProjectVersion, error)
}
