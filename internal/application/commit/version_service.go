// Package commit 提供项目版本、批量提交与快照查询的应用服务
package commit

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"

	"tracehub-api/internal/domain/entity"
	"tracehub-api/internal/domain/repository"
	"tracehub-api/pkg/errors"
	"tracehub-api/pkg/logger"
)

var tracer = otel.Tracer("commit")

// BumpKind 新版本相对最新版本的递增方式
type BumpKind string

const (
	BumpMajor    BumpKind = "major"
	BumpMinor    BumpKind = "minor"
	BumpRevision BumpKind = "revision"
)

// ParseBumpKind 解析递增方式，空串视为 revision
func ParseBumpKind(s string) (BumpKind, error) {
	switch BumpKind(strings.ToLower(strings.TrimSpace(s))) {
	case BumpMajor:
		return BumpMajor, nil
	case BumpMinor:
		return BumpMinor, nil
	case BumpRevision, "":
		return BumpRevision, nil
	default:
		return "", errors.ErrInvalidParam.WithDetail(fmt.Sprintf("unknown version bump %q", s))
	}
}

// VersionService 项目与项目版本管理
type VersionService struct {
	projects repository.ProjectRepository
	versions repository.ProjectVersionRepository
	tx       repository.Transactor
}

// NewVersionService 创建版本服务
func NewVersionService(projects repository.ProjectRepository, versions repository.ProjectVersionRepository, tx repository.Transactor) *VersionService {
	return &VersionService{projects: projects, versions: versions, tx: tx}
}

// CreateProject 创建项目
func (s *VersionService) CreateProject(ctx context.Context, name, description string) (*entity.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.ErrInvalidParam.WithDetail("project name is required")
	}

	project := entity.NewProject(name, description)
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}
	logger.Info(ctx, "project created", "project_id", project.ID, "name", project.Name)
	return project, nil
}

// GetProject 获取项目
func (s *VersionService) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, errors.ErrProjectNotFound.WithDetail(id)
	}
	return project, nil
}

// ListProjects 分页列出项目
func (s *VersionService) ListProjects(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	return s.projects.List(ctx, pagination)
}

// CreateVersion 在最新版本之上创建下一个版本；项目还没有版本时创建 1.0.0
func (s *VersionService) CreateVersion(ctx context.Context, projectID string, kind BumpKind) (*entity.ProjectVersion, error) {
	ctx, span := tracer.Start(ctx, "commit.VersionService.CreateVersion")
	defer span.End()

	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	var created *entity.ProjectVersion
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.projects.LockForUpdate(ctx, projectID); err != nil {
			return err
		}

		latest, err := s.versions.GetLatest(ctx, projectID)
		if err != nil {
			return err
		}
		created = nextVersion(projectID, latest, kind)
		return s.versions.Create(ctx, created)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "project version created",
		"project_id", projectID,
		"version", created.String(),
		"bump", string(kind),
	)
	return created, nil
}

func nextVersion(projectID string, latest *entity.ProjectVersion, kind BumpKind) *entity.ProjectVersion {
	if latest == nil {
		return entity.NewProjectVersion(projectID, 1, 0, 0)
	}
	switch kind {
	case BumpMajor:
		return latest.NextMajor()
	case BumpMinor:
		return latest.NextMinor()
	default:
		return latest.NextRevision()
	}
}

// GetVersion 获取版本
func (s *VersionService) GetVersion(ctx context.Context, id string) (*entity.ProjectVersion, error) {
	pv, err := s.versions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pv == nil {
		return nil, errors.ErrProjectVersionNotFound.WithDetail(id)
	}
	return pv, nil
}

// ListVersions 按版本升序列出项目版本
func (s *VersionService) ListVersions(ctx context.Context, projectID string) ([]*entity.ProjectVersion, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.versions.ListByProject(ctx, projectID)
}
