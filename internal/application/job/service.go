// Package job 提供异步提交任务的投递与执行
package job

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"

	"tracehub-api/internal/application/commit"
	"tracehub-api/internal/domain/entity"
	"tracehub-api/internal/domain/repository"
	"tracehub-api/internal/domain/versioning"
	"tracehub-api/internal/infrastructure/messaging"
	"tracehub-api/pkg/errors"
	"tracehub-api/pkg/logger"
)

var tracer = otel.Tracer("job")

// Publisher 任务消息投递
type Publisher interface {
	PublishCommitJob(ctx context.Context, job *messaging.CommitJobMessage) (string, error)
}

// Config 任务配置
type Config struct {
	// UploadMode 上传任务使用的批处理模式
	UploadMode versioning.Mode
	// MaxRetries 失败任务允许重新执行的次数
	MaxRetries int
}

// ModeFor 任务类型对应的批处理模式
func (c Config) ModeFor(jobType entity.JobType) versioning.Mode {
	if jobType == entity.JobTypeUpload {
		if c.UploadMode == "" {
			return versioning.ModeCompleteSet
		}
		return c.UploadMode
	}
	return versioning.ModeDelta
}

// ParseJobType 解析任务类型
func ParseJobType(s string) (entity.JobType, error) {
	switch entity.JobType(s) {
	case entity.JobTypeUpload, entity.JobTypeCommit:
		return entity.JobType(s), nil
	default:
		return "", errors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown job type %q", s))
	}
}

// Service 任务投递与查询
type Service struct {
	jobs      repository.JobRepository
	commits   *commit.Service
	publisher Publisher
	cfg       Config
}

// NewService 创建任务服务
func NewService(jobs repository.JobRepository, commits *commit.Service, publisher Publisher, cfg Config) *Service {
	return &Service{
		jobs:      jobs,
		commits:   commits,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Submit 校验载荷、落库任务并投递到提交任务流
func (s *Service) Submit(ctx context.Context, versionID string, jobType entity.JobType, payload *entity.CommitPayload) (*entity.Job, error) {
	ctx, span := tracer.Start(ctx, "job.Service.Submit")
	defer span.End()

	if payload == nil {
		payload = &entity.CommitPayload{}
	}
	req := &commit.Request{
		Artifacts: payload.Artifacts,
		Traces:    payload.Traces,
		Mode:      s.cfg.ModeFor(jobType),
	}
	if err := s.commits.Validate(req); err != nil {
		return nil, err
	}
	pv, err := s.commits.LoadVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	job := entity.NewJob(pv.ProjectID, pv.ID, jobType, payload)
	if err := s.jobs.Create(ctx, job); err != nil {
		span.RecordError(err)
		return nil, err
	}
	ctx = logger.WithContext(ctx, logger.JobIDKey, job.ID)

	if _, err := s.publisher.PublishCommitJob(ctx, &messaging.CommitJobMessage{
		JobID:            job.ID,
		ProjectID:        job.ProjectID,
		ProjectVersionID: job.ProjectVersionID,
		JobType:          string(job.JobType),
	}); err != nil {
		span.RecordError(err)
		logger.Error(ctx, "failed to enqueue commit job", err)
		job.Fail("enqueue failed: " + err.Error())
		if updateErr := s.jobs.Update(ctx, job); updateErr != nil {
			logger.Error(ctx, "failed to mark job failed", updateErr)
		}
		return nil, errors.Wrap(err, errors.CodeQueueError, "failed to enqueue job")
	}

	logger.Info(ctx, "commit job submitted",
		"job_type", string(jobType),
		"version", pv.String(),
		"entities", payload.Size(),
	)
	return job, nil
}

// Get 获取任务
func (s *Service) Get(ctx context.Context, id string) (*entity.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, errors.ErrJobNotFound.WithDetail(id)
	}
	return job, nil
}

// Cancel 取消尚未结束的任务；已结束的任务返回冲突
func (s *Service) Cancel(ctx context.Context, id string) (*entity.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, errors.ErrConflict.WithDetail(fmt.Sprintf("job %s is already %s", id, job.Status))
	}

	job.Cancel()
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, err
	}
	logger.Info(ctx, "commit job cancelled", "job_id", id)
	return job, nil
}

// ListByVersion 分页列出版本上的任务
func (s *Service) ListByVersion(ctx context.Context, versionID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Job], error) {
	if _, err := s.commits.LoadVersion(ctx, versionID); err != nil {
		return nil, err
	}
	return s.jobs.ListByProjectVersion(ctx, versionID, pagination)
}
