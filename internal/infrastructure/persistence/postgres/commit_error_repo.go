// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"tracehub-api/internal/domain/entity"
)

// CommitErrorRepository 提交错误仓储实现
type CommitErrorRepository struct {
	client *Client
}

// NewCommitErrorRepository 创建提交错误仓储
func NewCommitErrorRepository(client *Client) *CommitErrorRepository {
	return &CommitErrorRepository{client: client}
}

// CreateBatch 批量写入
func (r *CommitErrorRepository) CreateBatch(ctx context.Context, errs []*entity.CommitError) error {
	if len(errs) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "postgres.CommitErrorRepository.CreateBatch")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.CreateInBatches(errs, 100).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create commit errors: %w", err)
	}
	return nil
}

// ListByProjectVersion 列出版本的提交错误，activity 为空时返回全部
func (r *CommitErrorRepository) ListByProjectVersion(ctx context.Context, projectVersionID string, activity entity.CommitActivity) ([]*entity.CommitError, error) {
	ctx, span := tracer.Start(ctx, "postgres.CommitErrorRepository.ListByProjectVersion")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Where("project_version_id = ?", projectVersionID)
	if activity != "" {
		query = query.Where("activity = ?", activity)
	}

	var errs []*entity.CommitError
	if err := query.Order("created_at ASC").Find(&errs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list commit errors: %w", err)
	}
	return errs, nil
}
