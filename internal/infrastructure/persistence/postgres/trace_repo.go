// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"tracehub-api/internal/domain/entity"
)

// TraceLinkRepository 追溯链接仓储实现
type TraceLinkRepository struct {
	client *Client
}

// NewTraceLinkRepository 创建追溯链接仓储
func NewTraceLinkRepository(client *Client) *TraceLinkRepository {
	return &TraceLinkRepository{client: client}
}

// Create 创建链接
func (r *TraceLinkRepository) Create(ctx context.Context, link *entity.TraceLink) error {
	ctx, span := tracer.Start(ctx, "postgres.TraceLinkRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Omit(clause.Associations).Create(link).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create trace link: %w", translateWriteError(err))
	}
	return nil
}

// GetByEndpoints 按两端工件名称查找
func (r *TraceLinkRepository) GetByEndpoints(ctx context.Context, projectID, sourceName, targetName string) (*entity.TraceLink, error) {
	ctx, span := tracer.Start(ctx, "postgres.TraceLinkRepository.GetByEndpoints")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var link entity.TraceLink
	err := db.Preload("Source").
		Preload("Target").
		Joins("JOIN artifacts src ON src.id = trace_links.source_artifact_id").
		Joins("JOIN artifacts tgt ON tgt.id = trace_links.target_artifact_id").
		Where("trace_links.project_id = ? AND src.name = ? AND tgt.name = ?", projectID, sourceName, targetName).
		Take(&link).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get trace link: %w", err)
	}
	return &link, nil
}

// ListByProject 获取项目内全部链接
func (r *TraceLinkRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.TraceLink, error) {
	ctx, span := tracer.Start(ctx, "postgres.TraceLinkRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var links []*entity.TraceLink
	if err := db.Preload("Source").
		Preload("Target").
		Where("project_id = ?", projectID).
		Find(&links).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list trace links: %w", err)
	}
	return links, nil
}

// TraceLinkVersionRepository 追溯链接版本行仓储实现
type TraceLinkVersionRepository struct {
	client *Client
}

// NewTraceLinkVersionRepository 创建追溯链接版本行仓储
func NewTraceLinkVersionRepository(client *Client) *TraceLinkVersionRepository {
	return &TraceLinkVersionRepository{client: client}
}

var traceLinkVersionContent = []string{"modification", "trace_type", "approval_status", "score", "explanation", "updated_at"}

// Save 插入新行，或按 ID 覆盖已有行的内容
func (r *TraceLinkVersionRepository) Save(ctx context.Context, version *entity.TraceLinkVersion) error {
	ctx, span := tracer.Start(ctx, "postgres.TraceLinkVersionRepository.Save")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if version.ID != "" {
		res := db.Model(version).Select(traceLinkVersionContent).Updates(version)
		if res.Error != nil {
			span.RecordError(res.Error)
			return fmt.Errorf("failed to update trace link version: %w", translateWriteError(res.Error))
		}
		if res.RowsAffected > 0 {
			return nil
		}
	}

	if err := db.Omit(clause.Associations).Create(version).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create trace link version: %w", translateWriteError(err))
	}
	return nil
}

// GetByVersionAndLink 获取指定版本上的行
func (r *TraceLinkVersionRepository) GetByVersionAndLink(ctx context.Context, projectVersionID, traceLinkID string) (*entity.TraceLinkVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.TraceLinkVersionRepository.GetByVersionAndLink")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var version entity.TraceLinkVersion
	if err := db.Preload("Version").
		First(&version, "project_version_id = ? AND trace_link_id = ?", projectVersionID, traceLinkID).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get trace link version: %w", err)
	}
	return &version, nil
}

// ListByLink 获取链接的全部版本行
func (r *TraceLinkVersionRepository) ListByLink(ctx context.Context, traceLinkID string) ([]*entity.TraceLinkVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.TraceLinkVersionRepository.ListByLink")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var versions []*entity.TraceLinkVersion
	if err := db.Preload("Version").Where("trace_link_id = ?", traceLinkID).Find(&versions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list trace link versions: %w", err)
	}
	return versions, nil
}

// ListByProject 获取项目内全部版本行
func (r *TraceLinkVersionRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.TraceLinkVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.TraceLinkVersionRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	versionIDs := db.Model(&entity.ProjectVersion{}).Select("id").Where("project_id = ?", projectID)

	var versions []*entity.TraceLinkVersion
	if err := db.Preload("Version").
		Preload("TraceLink.Source").
		Preload("TraceLink.Target").
		Where("project_version_id IN (?)", versionIDs).
		Find(&versions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list project trace link versions: %w", err)
	}
	return versions, nil
}

// ListByProjectVersion 获取恰好在该版本上写入的行
func (r *TraceLinkVersionRepository) ListByProjectVersion(ctx context.Context, projectVersionID string) ([]*entity.TraceLinkVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.TraceLinkVersionRepository.ListByProjectVersion")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var versions []*entity.TraceLinkVersion
	if err := db.Preload("Version").
		Preload("TraceLink.Source").
		Preload("TraceLink.Target").
		Where("project_version_id = ?", projectVersionID).
		Find(&versions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list trace link versions: %w", err)
	}
	return versions, nil
}

// TraceMatrixRepository 追溯矩阵仓储实现
type TraceMatrixRepository struct {
	client *Client
}

// NewTraceMatrixRepository 创建追溯矩阵仓储
func NewTraceMatrixRepository(client *Client) *TraceMatrixRepository {
	return &TraceMatrixRepository{client: client}
}

// Create 创建矩阵记录
func (r *TraceMatrixRepository) Create(ctx context.Context, matrix *entity.TraceMatrix) error {
	ctx, span := tracer.Start(ctx, "postgres.TraceMatrixRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(matrix).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create trace matrix: %w", translateWriteError(err))
	}
	return nil
}

// Get 获取两种类型之间的矩阵记录
func (r *TraceMatrixRepository) Get(ctx context.Context, projectID, sourceTypeID, targetTypeID string) (*entity.TraceMatrix, error) {
	ctx, span := tracer.Start(ctx, "postgres.TraceMatrixRepository.Get")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var matrix entity.TraceMatrix
	if err := db.First(&matrix, "project_id = ? AND source_type_id = ? AND target_type_id = ?",
		projectID, sourceTypeID, targetTypeID).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get trace matrix: %w", err)
	}
	return &matrix, nil
}

// ListByProject 获取项目内全部矩阵记录
func (r *TraceMatrixRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.TraceMatrix, error) {
	ctx, span := tracer.Start(ctx, "postgres.TraceMatrixRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var matrices []*entity.TraceMatrix
	if err := db.Where("project_id = ?", projectID).Find(&matrices).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list trace matrices: %w", err)
	}
	return matrices, nil
}
