package commit

import (
	"context"
	"encoding/json"
	"fmt"

	"tracehub-api/internal/domain/entity"
	"tracehub-api/internal/domain/repository"
	"tracehub-api/internal/domain/versioning"
	"tracehub-api/pkg/errors"
)

// SnapshotCache 快照读穿缓存
type SnapshotCache interface {
	GetOrLoad(ctx context.Context, kind, projectID, versionID string, loader func(ctx context.Context) (any, error)) ([]byte, error)
}

// 缓存键中的快照种类
const (
	snapshotArtifacts = "artifacts"
	snapshotTraces    = "traces"
)

// SnapshotService 按版本查询工件与追溯链接
type SnapshotService struct {
	versions  repository.ProjectVersionRepository
	artifacts *versioning.ArtifactEngine
	traces    *versioning.TraceEngine
	cache     SnapshotCache
}

// NewSnapshotService 创建快照服务；cache 为 nil 时直接查询数据库
func NewSnapshotService(versions repository.ProjectVersionRepository, artifacts *versioning.ArtifactEngine, traces *versioning.TraceEngine, cache SnapshotCache) *SnapshotService {
	return &SnapshotService{
		versions:  versions,
		artifacts: artifacts,
		traces:    traces,
		cache:     cache,
	}
}

func (s *SnapshotService) version(ctx context.Context, versionID string) (*entity.ProjectVersion, error) {
	pv, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if pv == nil {
		return nil, errors.ErrProjectVersionNotFound.WithDetail(versionID)
	}
	return pv, nil
}

// Artifacts 版本上生效的全部工件
func (s *SnapshotService) Artifacts(ctx context.Context, versionID string) ([]*entity.ArtifactVersion, error) {
	ctx, span := tracer.Start(ctx, "commit.SnapshotService.Artifacts")
	defer span.End()

	pv, err := s.version(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s.cache, snapshotArtifacts, pv, func(ctx context.Context) ([]*entity.ArtifactVersion, error) {
		return s.artifacts.EntitiesAtVersion(ctx, pv)
	})
}

// Traces 版本上生效的全部追溯链接
func (s *SnapshotService) Traces(ctx context.Context, versionID string) ([]*entity.TraceLinkVersion, error) {
	ctx, span := tracer.Start(ctx, "commit.SnapshotService.Traces")
	defer span.End()

	pv, err := s.version(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s.cache, snapshotTraces, pv, func(ctx context.Context) ([]*entity.TraceLinkVersion, error) {
		return s.traces.EntitiesAtVersion(ctx, pv)
	})
}

// History 工件的全部版本行，按版本升序
func (s *SnapshotService) History(ctx context.Context, artifactID string) ([]*entity.ArtifactVersion, error) {
	rows, err := s.artifacts.History(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.ErrArtifactNotFound.WithDetail(artifactID)
	}
	return rows, nil
}

func cached[T any](ctx context.Context, cache SnapshotCache, kind string, pv *entity.ProjectVersion, load func(ctx context.Context) ([]T, error)) ([]T, error) {
	if cache == nil {
		return load(ctx)
	}

	raw, err := cache.GetOrLoad(ctx, kind, pv.ProjectID, pv.ID, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return nil, err
	}

	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s snapshot: %w", kind, err)
	}
	return rows, nil
}
