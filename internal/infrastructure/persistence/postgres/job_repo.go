package postgres

import (
	"context"
	"fmt"

	"tracehub-api/internal/domain/entity"
	"tracehub-api/internal/domain/repository"
	"tracehub-api/pkg/errors"
)

// jobStateColumns 任务创建后可变的列；payload 写入后不再改写
var jobStateColumns = []string{
	"status", "current_step", "progress", "result", "error_message",
	"retry_count", "started_at", "completed_at", "updated_at",
}

// JobRepository 提交任务仓储
type JobRepository struct {
	client *Client
}

// NewJobRepository 创建任务仓储
func NewJobRepository(client *Client) *JobRepository {
	return &JobRepository{client: client}
}

// Create 写入任务及其提交载荷；版本不存在时返回 ErrIntegrityViolation
func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(job).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create job: %w", translateWriteError(err))
	}
	return nil
}

// GetByID 不存在时返回 nil, nil
func (r *JobRepository) GetByID(ctx context.Context, id string) (*entity.Job, error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.GetByID")
	defer span.End()

	var job entity.Job
	if err := getDB(ctx, r.client.db).First(&job, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// Update 只写状态列，避免每次状态迁移都重写提交载荷
func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.Update")
	defer span.End()

	if job.ID == "" {
		return errors.ErrJobNotFound
	}
	res := getDB(ctx, r.client.db).Model(job).Select(jobStateColumns).Updates(job)
	if res.Error != nil {
		span.RecordError(res.Error)
		return fmt.Errorf("failed to update job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.ErrJobNotFound.WithDetail(job.ID)
	}
	return nil
}

// UpdateProgress progress 取值 0-100
func (r *JobRepository) UpdateProgress(ctx context.Context, id, step string, progress int) error {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.UpdateProgress")
	defer span.End()

	if progress < 0 || progress > 100 {
		return errors.ErrInvalidParam.WithDetail(fmt.Sprintf("job progress %d out of range", progress))
	}

	if err := getDB(ctx, r.client.db).Model(&entity.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{"current_step": step, "progress": progress}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// ListByProjectVersion 新任务在前
func (r *JobRepository) ListByProjectVersion(ctx context.Context, projectVersionID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Job], error) {
	ctx, span := tracer.Start(ctx, "postgres.JobRepository.ListByProjectVersion")
	defer span.End()

	query := getDB(ctx, r.client.db).Model(&entity.Job{}).Where("project_version_id = ?", projectVersionID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	var jobs []*entity.Job
	if err := query.Order("created_at DESC").Order("id").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&jobs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return repository.NewPagedResult(jobs, total), nil
}
