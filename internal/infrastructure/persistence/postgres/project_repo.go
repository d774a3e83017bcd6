// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"tracehub-api/internal/domain/entity"
	"tracehub-api/internal/domain/repository"
)

// ProjectRepository 项目仓储实现
type ProjectRepository struct {
	client *Client
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(client *Client) *ProjectRepository {
	return &ProjectRepository{client: client}
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(project).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create project: %w", translateWriteError(err))
	}
	return nil
}

// GetByID 根据 ID 获取项目
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var project entity.Project
	if err := db.First(&project, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// List 获取项目列表
func (r *ProjectRepository) List(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Project{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	var projects []*entity.Project
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&projects).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return repository.NewPagedResult(projects, total), nil
}

// LockForUpdate 在当前事务中锁定项目行，事务外调用返回错误；SQLite 整库串行写入，无需行锁
func (r *ProjectRepository) LockForUpdate(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.LockForUpdate")
	defer span.End()

	if !inTransaction(ctx) {
		return errNoTransaction
	}
	if r.client.Dialect() != "postgres" {
		return nil
	}
	db := getDB(ctx, r.client.db)

	var locked entity.Project
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&locked, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to lock project: %w", err)
	}
	return nil
}

// ProjectVersionRepository 项目版本仓储实现
type ProjectVersionRepository struct {
	client *Client
}

// NewProjectVersionRepository 创建项目版本仓储
func NewProjectVersionRepository(client *Client) *ProjectVersionRepository {
	return &ProjectVersionRepository{client: client}
}

// Create 创建版本
func (r *ProjectVersionRepository) Create(ctx context.Context, version *entity.ProjectVersion) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectVersionRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(version).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create project version %s: %w", version, translateWriteError(err))
	}
	return nil
}

// GetByID 根据 ID 获取版本
func (r *ProjectVersionRepository) GetByID(ctx context.Context, id string) (*entity.ProjectVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectVersionRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var version entity.ProjectVersion
	if err := db.First(&version, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project version: %w", err)
	}
	return &version, nil
}

// GetLatest 获取项目最新版本
func (r *ProjectVersionRepository) GetLatest(ctx context.Context, projectID string) (*entity.ProjectVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectVersionRepository.GetLatest")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var version entity.ProjectVersion
	if err := db.Where("project_id = ?", projectID).
		Order("major DESC, minor DESC, patch DESC").
		Take(&version).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get latest project version: %w", err)
	}
	return &version, nil
}

// ListByProject 按版本升序列出
func (r *ProjectVersionRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.ProjectVersion, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectVersionRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var versions []*entity.ProjectVersion
	if err := db.Where("project_id = ?", projectID).
		Order("major ASC, minor ASC, patch ASC").
		Find(&versions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list project versions: %w", err)
	}
	return versions, nil
}
