// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"tracehub-api/internal/domain/entity"
)

// ArtifactRepository 工件仓储接口
// 查询方法在记录不存在时返回 (nil, nil)
type ArtifactRepository interface {
	Create(ctx context.Context, artifact *entity.Artifact) error
	GetByID(ctx context.Context, projectID, id string) (*entity.Artifact, error)
	GetByName(ctx context.Context, projectID, name string) (*entity.Artifact, error)
	ListByProject(ctx context.Context, projectID string) ([]*entity.Artifact, error)

	// UpdateType 修改工件类型
	UpdateType(ctx context.Context, id, typeID string) error
}

// ArtifactTypeRepository 工件类型仓储接口
type ArtifactTypeRepository interface {
	Create(ctx context.Context, artifactType *entity.ArtifactType) error

	// GetByName 大小写不敏感匹配
	GetByName(ctx context.Context, projectID, name string) (*entity.ArtifactType, error)
	ListByProject(ctx context.Context, projectID string) ([]*entity.ArtifactType, error)
}

// ArtifactVersionRepository 工件版本行仓储接口
// 返回的行都预加载了 Version
type ArtifactVersionRepository interface {
	// Save 插入，或按 ID 覆盖已有行
	Save(ctx context.Context, version *entity.ArtifactVersion) error
	GetByVersionAndArtifact(ctx context.Context, projectVersionID, artifactID string) (*entity.ArtifactVersion, error)
	ListByArtifact(ctx context.Context, artifactID string) ([]*entity.ArtifactVersion, error)
	ListByProject(ctx context.Context, projectID string) ([]*entity.ArtifactVersion, error)

	// ListByProjectVersion 恰好在该版本上写入的行（即该版本的变更集）
	ListByProjectVersion(ctx context.Context, projectVersionID string) ([]*entity.ArtifactVersion, error)
}
