// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"tracehub-api/internal/domain/entity"
)

// ArtifactRepository 工件仓储实现
type ArtifactRepository struct {
	client *Client
}

// NewArtifactRepository 创建工件仓储
func NewArtifactRepository(client *Client) *ArtifactRepository {
	return &ArtifactRepository{client: client}
}

// Create 创建工件
func (r *ArtifactRepository) Create(ctx context.Context, artifact *entity.Artifact) error {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Omit(clause.Associations).Create(artifact).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create artifact: %w", translateWriteError(err))
	}
	return nil
}

// GetByID 根据 ID 获取项目内的工件
func (r *ArtifactRepository) GetByID(ctx context.Context, projectID, id string) (*entity.Artifact, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var artifact entity.Artifact
	if err := db.Preload("Type").First(&artifact, "project_id = ? AND id = ?", projectID, id).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return &artifact, nil
}

// GetByName 根据名称获取项目内的工件
func (r *ArtifactRepository) GetByName(ctx context.Context, projectID, name string) (*entity.Artifact, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactRepository.GetByName")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var artifact entity.Artifact
	if err := db.Preload("Type").First(&artifact, "project_id = ? AND name = ?", projectID, name).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get artifact by name: %w", err)
	}
	return &artifact, nil
}

// ListByProject 获取项目内全部工件
func (r *ArtifactRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.Artifact, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var artifacts []*entity.Artifact
	if err := db.Preload("Type").
		Where("project_id = ?", projectID).
		Order("name ASC").
		Find(&artifacts).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return artifacts, nil
}

// UpdateType 修改工件类型
func (r *ArtifactRepository) UpdateType(ctx context.Context, id, typeID string) error {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactRepository.UpdateType")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Artifact{}).
		Where("id = ?", id).
		Update("type_id", typeID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update artifact type: %w", translateWriteError(err))
	}
	return nil
}

// ArtifactTypeRepository 工件类型仓储实现
type ArtifactTypeRepository struct {
	client *Client
}

// NewArtifactTypeRepository 创建工件类型仓储
func NewArtifactTypeRepository(client *Client) *ArtifactTypeRepository {
	return &ArtifactTypeRepository{client: client}
}

// Create 创建类型
func (r *ArtifactTypeRepository) Create(ctx context.Context, artifactType *entity.ArtifactType) error {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactTypeRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(artifactType).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create artifact type: %w", translateWriteError(err))
	}
	return nil
}

// GetByName 大小写不敏感匹配类型名
func (r *ArtifactTypeRepository) GetByName(ctx context.Context, projectID, name string) (*entity.ArtifactType, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactTypeRepository.GetByName")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var artifactType entity.ArtifactType
	if err := db.First(&artifactType, "project_id = ? AND name_key = ?", projectID, entity.NormalizeTypeName(name)).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get artifact type: %w", err)
	}
	return &artifactType, nil
}

// ListByProject 获取项目内全部类型
func (r *ArtifactTypeRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.ArtifactType, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactTypeRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var types []*entity.ArtifactType
	if err := db.Where("project_id = ?", projectID).Order("name ASC").Find(&types).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list artifact types: %w", err)
	}
	return types, nil
}

// ArtifactVersionRepository 工件版本行仓储实现
type ArtifactVersionRepository struct {
	client *Client
}

// NewArtifactVersionRepository 创建工件版本行仓储
func NewArtifactVersionRepository(client *Client) *ArtifactVersionRepository {
	return &ArtifactVersionRepository{client: client}
}

// artifactVersionContent 原地覆盖时更新的列
var artifactVersionContent = []string{"modification", "summary", "body", "custom_fields", "updated_at"}

// Save 插入新行，或按 ID 覆盖已有行的内容
func (r *ArtifactVersionRepository) Save(ctx context.Context, version *entity.ArtifactVersion) error {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactVersionRepository.Save")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if version.ID != "" {
		res := db.Model(version).Select(artifactVersionContent).Updates(version)
		if res.Error != nil {
			span.RecordError(res.Error)
			return fmt.Errorf("failed to update artifact version: %w", translateWriteError(res.Error))
		}
		if res.RowsAffected > 0 {
			return nil
		}
	}

	if err := db.Omit(clause.Associations).Create(version).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create artifact version: %w", translateWriteError(err))
	}
	return nil
}

// GetByVersionAndArtifact 获取指定版本上的行
func (r *ArtifactVersionRepository) GetByVersionAndArtifact(ctx context.Context, projectVersionID, artifactID string) (*entity.ArtifactVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactVersionRepository.GetByVersionAndArtifact")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var version entity.ArtifactVersion
	if err := db.Preload("Version").
		First(&version, "project_version_id = ? AND artifact_id = ?", projectVersionID, artifactID).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get artifact version: %w", err)
	}
	return &version, nil
}

// ListByArtifact 获取工件的全部版本行
func (r *ArtifactVersionRepository) ListByArtifact(ctx context.Context, artifactID string) ([]*entity.ArtifactVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactVersionRepository.ListByArtifact")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var versions []*entity.ArtifactVersion
	if err := db.Preload("Version").
		Preload("Artifact.Type").
		Where("artifact_id = ?", artifactID).
		Find(&versions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list artifact versions: %w", err)
	}
	return versions, nil
}

// ListByProject 获取项目内全部版本行
func (r *ArtifactVersionRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.ArtifactVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactVersionRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	versionIDs := db.Model(&entity.ProjectVersion{}).Select("id").Where("project_id = ?", projectID)

	var versions []*entity.ArtifactVersion
	if err := db.Preload("Version").
		Preload("Artifact.Type").
		Where("project_version_id IN (?)", versionIDs).
		Find(&versions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list project artifact versions: %w", err)
	}
	return versions, nil
}

// ListByProjectVersion 获取恰好在该版本上写入的行
func (r *ArtifactVersionRepository) ListByProjectVersion(ctx context.Context, projectVersionID string) ([]*entity.ArtifactVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactVersionRepository.ListByProjectVersion")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var versions []*entity.ArtifactVersion
	if err := db.Preload("Version").
		Preload("Artifact.Type").
		Where("project_version_id = ?", projectVersionID).
		Find(&versions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list artifact versions: %w", err)
	}
	return versions, nil
}
