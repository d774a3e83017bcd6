// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"tracehub-api/internal/domain/entity"
)

// TraceLinkRepository 追溯链接仓储接口
type TraceLinkRepository interface {
	Create(ctx context.Context, link *entity.TraceLink) error

	// GetByEndpoints 按源、目标工件名称查找，预加载两端工件
	GetByEndpoints(ctx context.Context, projectID, sourceName, targetName string) (*entity.TraceLink, error)
	ListByProject(ctx context.Context, projectID string) ([]*entity.TraceLink, error)
}

// TraceLinkVersionRepository 追溯链接版本行仓储接口
// 返回的行都预加载了 Version
type TraceLinkVersionRepository interface {
	Save(ctx context.Context, version *entity.TraceLinkVersion) error
	GetByVersionAndLink(ctx context.Context, projectVersionID, traceLinkID string) (*entity.TraceLinkVersion, error)
	ListByLink(ctx context.Context, traceLinkID string) ([]*entity.TraceLinkVersion, error)
	ListByProject(ctx context.Context, projectID string) ([]*entity.TraceLinkVersion, error)
	ListByProjectVersion(ctx context.Context, projectVersionID string) ([]*entity.TraceLinkVersion, error)
}

// TraceMatrixRepository 追溯矩阵仓储接口
type TraceMatrixRepository interface {
	Create(ctx context.Context, matrix *entity.TraceMatrix) error
	Get(ctx context.Context, projectID, sourceTypeID, targetTypeID string) (*entity.TraceMatrix, error)
	ListByProject(ctx context.Context, projectID string) ([]*entity.TraceMatrix, error)
}
