package commit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"tracehub-api/internal/domain/entity"
	"tracehub-api/internal/domain/repository"
	"tracehub-api/internal/domain/versioning"
	"tracehub-api/pkg/errors"
	"tracehub-api/pkg/logger"
	"tracehub-api/pkg/metrics"
)

// CacheInvalidator 提交成功后使项目快照失效
type CacheInvalidator interface {
	Invalidate(ctx context.Context, projectID string) (int64, error)
}

// Request 一次提交的期望状态
type Request struct {
	Artifacts []*entity.ArtifactAppEntity
	Traces    []*entity.TraceAppEntity
	Mode      versioning.Mode
}

// Size 实体总数
func (r *Request) Size() int {
	return len(r.Artifacts) + len(r.Traces)
}

// Errors 按类别分组的提交错误
type Errors struct {
	Artifacts []*entity.CommitError `json:"artifacts"`
	Traces    []*entity.CommitError `json:"traces"`
}

// Count 错误总数
func (e *Errors) Count() int {
	return len(e.Artifacts) + len(e.Traces)
}

func groupErrors(errs []*entity.CommitError) *Errors {
	grouped := &Errors{
		Artifacts: []*entity.CommitError{},
		Traces:    []*entity.CommitError{},
	}
	for _, e := range errs {
		switch e.Activity {
		case entity.ActivityArtifacts:
			grouped.Artifacts = append(grouped.Artifacts, e)
		case entity.ActivityTraces:
			grouped.Traces = append(grouped.Traces, e)
		}
	}
	return grouped
}

// Result 提交结果
type Result struct {
	Version   *entity.ProjectVersion     `json:"version"`
	Artifacts []*entity.ArtifactVersion  `json:"artifacts"`
	Traces    []*entity.TraceLinkVersion `json:"traces"`
	Errors    *Errors                    `json:"errors"`
}

// Dependencies 提交服务依赖
type Dependencies struct {
	Projects     repository.ProjectRepository
	Versions     repository.ProjectVersionRepository
	CommitErrors repository.CommitErrorRepository
	Artifacts    *versioning.ArtifactEngine
	Traces       *versioning.TraceEngine
	Tx           repository.Transactor
	Cache        CacheInvalidator
	MaxBatchSize int
}

// Service 批量提交服务
type Service struct {
	deps Dependencies
}

// NewService 创建提交服务
func NewService(deps Dependencies) *Service {
	return &Service{deps: deps}
}

// LoadVersion 获取提交目标版本
func (s *Service) LoadVersion(ctx context.Context, versionID string) (*entity.ProjectVersion, error) {
	pv, err := s.deps.Versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if pv == nil {
		return nil, errors.ErrProjectVersionNotFound.WithDetail(versionID)
	}
	return pv, nil
}

// Validate 检查请求本身是否可以提交
func (s *Service) Validate(req *Request) error {
	if req == nil {
		return errors.ErrInvalidParam.WithDetail("empty commit")
	}
	if _, err := versioning.ParseMode(string(req.Mode)); err != nil {
		return errors.ErrInvalidParam.WithDetail(err.Error())
	}
	if s.deps.MaxBatchSize > 0 && req.Size() > s.deps.MaxBatchSize {
		return errors.ErrInvalidParam.WithDetail(
			fmt.Sprintf("commit has %d entities, limit is %d", req.Size(), s.deps.MaxBatchSize))
	}
	return nil
}

// Commit 在目标版本上应用期望状态并使快照缓存失效
func (s *Service) Commit(ctx context.Context, versionID string, req *Request) (*Result, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	pv, err := s.LoadVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	result, err := s.Apply(ctx, pv, req)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, pv.ProjectID)
	return result, nil
}

// RemoveArtifact 在目标版本上删除单个工件
// 工件在该版本已不存在时返回 nil 行
func (s *Service) RemoveArtifact(ctx context.Context, versionID, artifactID string) (*entity.ArtifactVersion, error) {
	pv, err := s.LoadVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx, logger.ProjectIDKey, pv.ProjectID)
	ctx = logger.WithContext(ctx, logger.VersionIDKey, pv.ID)

	var removed *entity.ArtifactVersion
	err = s.deps.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.deps.Projects.LockForUpdate(ctx, pv.ProjectID); err != nil {
			return err
		}
		v, err := s.deps.Artifacts.RemoveAppEntity(ctx, pv, &entity.ArtifactAppEntity{ID: artifactID})
		if err != nil {
			return err
		}
		removed = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	if removed != nil {
		s.Invalidate(ctx, pv.ProjectID)
		logger.Info(ctx, "artifact removed", "artifact_id", artifactID, "version", pv.String())
	}
	return removed, nil
}

// Apply 在一个事务中先处理工件再处理追溯链接，并持久化提交错误
// 同一项目的提交通过项目行锁串行执行
func (s *Service) Apply(ctx context.Context, pv *entity.ProjectVersion, req *Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "commit.Service.Apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("commit.version", pv.String()),
		attribute.String("commit.mode", string(req.Mode)),
		attribute.Int("commit.artifacts", len(req.Artifacts)),
		attribute.Int("commit.traces", len(req.Traces)),
	)

	ctx = logger.WithContext(ctx, logger.ProjectIDKey, pv.ProjectID)
	ctx = logger.WithContext(ctx, logger.VersionIDKey, pv.ID)

	result := &Result{Version: pv}
	err := s.deps.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.deps.Projects.LockForUpdate(ctx, pv.ProjectID); err != nil {
			return err
		}

		artifacts, err := s.deps.Artifacts.SetAppEntities(ctx, pv, req.Artifacts, req.Mode)
		if err != nil {
			return fmt.Errorf("failed to apply artifacts: %w", err)
		}
		traces, err := s.deps.Traces.SetAppEntities(ctx, pv, req.Traces, req.Mode)
		if err != nil {
			return fmt.Errorf("failed to apply traces: %w", err)
		}

		all := append(append([]*entity.CommitError{}, artifacts.Errors...), traces.Errors...)
		if err := s.deps.CommitErrors.CreateBatch(ctx, all); err != nil {
			return err
		}

		result.Artifacts = artifacts.Versions
		result.Traces = traces.Versions
		result.Errors = groupErrors(all)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		metrics.CommitsTotal.WithLabelValues("failed").Inc()
		logger.Error(ctx, "commit failed", err, "version", pv.String())
		return nil, err
	}

	status := "success"
	if result.Errors.Count() > 0 {
		status = "partial"
	}
	metrics.CommitsTotal.WithLabelValues(status).Inc()
	logger.Info(ctx, "commit applied",
		"version", pv.String(),
		"artifact_rows", len(result.Artifacts),
		"trace_rows", len(result.Traces),
		"errors", result.Errors.Count(),
	)
	return result, nil
}

// Invalidate 使项目快照缓存失效，失败只记录日志
func (s *Service) Invalidate(ctx context.Context, projectID string) {
	if s.deps.Cache == nil {
		return
	}
	if _, err := s.deps.Cache.Invalidate(ctx, projectID); err != nil {
		logger.Warn(ctx, "failed to invalidate snapshot cache", "project_id", projectID, "error", err.Error())
	}
}

// Errors 获取版本上记录的提交错误
func (s *Service) Errors(ctx context.Context, versionID string) (*Errors, error) {
	if _, err := s.LoadVersion(ctx, versionID); err != nil {
		return nil, err
	}
	errs, err := s.deps.CommitErrors.ListByProjectVersion(ctx, versionID, "")
	if err != nil {
		return nil, err
	}
	return groupErrors(errs), nil
}
