package versioning

import (
	"context"
	"fmt"
	"strings"

	"tracehub-api/internal/domain/entity"
	"tracehub-api/internal/domain/repository"
)

// TraceEngine 追溯链接版本化引擎
type TraceEngine = Engine[*entity.TraceLink, *entity.TraceLinkVersion, *entity.TraceAppEntity]

// TraceRepositories 追溯绑定依赖的仓储
type TraceRepositories struct {
	Artifacts repository.ArtifactRepository
	Links     repository.TraceLinkRepository
	Versions  repository.TraceLinkVersionRepository
	Matrices  repository.TraceMatrixRepository
}

// NewTraceEngine 创建追溯链接引擎
func NewTraceEngine(repos TraceRepositories, tx repository.Transactor) (*TraceEngine, error) {
	b := &traceBinding{repos: repos}
	return New(
		&traceStore{repos: repos},
		Binding[*entity.TraceLink, *entity.TraceLinkVersion, *entity.TraceAppEntity]{
			Kind:       entity.ActivityTraces,
			Noun:       "trace link",
			Resolve:    b.resolve,
			Lookup:     b.lookup,
			NewVersion: newTraceLinkVersion,
			Guard:      b.guardManual,
			Describe:   describeTraceLink,
		},
		tx,
	)
}

type traceBinding struct {
	repos TraceRepositories
}

// resolve 新链接要求两端工件已存在，并确保两端类型之间有追溯矩阵
func (b *traceBinding) resolve(ctx context.Context, pv *entity.ProjectVersion, app *entity.TraceAppEntity) (*entity.TraceLink, error) {
	if err := validateTraceApp(app); err != nil {
		return nil, err
	}

	link, err := b.lookup(ctx, pv, app)
	if err != nil || link != nil {
		return link, err
	}

	source, err := b.endpoint(ctx, pv.ProjectID, app.SourceName)
	if err != nil {
		return nil, err
	}
	target, err := b.endpoint(ctx, pv.ProjectID, app.TargetName)
	if err != nil {
		return nil, err
	}

	if err := b.ensureMatrix(ctx, pv.ProjectID, source.TypeID, target.TypeID); err != nil {
		return nil, err
	}

	link = &entity.TraceLink{
		ProjectID:        pv.ProjectID,
		SourceArtifactID: source.ID,
		TargetArtifactID: target.ID,
		Source:           source,
		Target:           target,
	}
	if err := b.repos.Links.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to save trace link %q: %w", app.DisplayName(), err)
	}
	return link, nil
}

func (b *traceBinding) lookup(ctx context.Context, pv *entity.ProjectVersion, app *entity.TraceAppEntity) (*entity.TraceLink, error) {
	return b.repos.Links.GetByEndpoints(ctx, pv.ProjectID, app.SourceName, app.TargetName)
}

func (b *traceBinding) endpoint(ctx context.Context, projectID, name string) (*entity.Artifact, error) {
	artifact, err := b.repos.Artifacts.GetByName(ctx, projectID, name)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, ErrArtifactNotFound.WithDetail(name)
	}
	return artifact, nil
}

func (b *traceBinding) ensureMatrix(ctx context.Context, projectID, sourceTypeID, targetTypeID string) error {
	matrix, err := b.repos.Matrices.Get(ctx, projectID, sourceTypeID, targetTypeID)
	if err != nil {
		return err
	}
	if matrix != nil {
		return nil
	}
	matrix = &entity.TraceMatrix{
		ProjectID:    projectID,
		SourceTypeID: sourceTypeID,
		TargetTypeID: targetTypeID,
	}
	if err := b.repos.Matrices.Create(ctx, matrix); err != nil {
		return fmt.Errorf("failed to save trace matrix: %w", err)
	}
	return nil
}

// guardManual 生成的链接不能覆盖同一版本上人工维护的链接
func (b *traceBinding) guardManual(ctx context.Context, pv *entity.ProjectVersion, link *entity.TraceLink, app *entity.TraceAppEntity) error {
	if app == nil || app.IsManual() {
		return nil
	}
	existing, err := b.repos.Versions.GetByVersionAndLink(ctx, pv.ID, link.ID)
	if err != nil {
		return err
	}
	if existing != nil && existing.IsManual() {
		return ErrManualLinkOverride.WithDetail(app.DisplayName())
	}
	return nil
}

func validateTraceApp(app *entity.TraceAppEntity) error {
	if app == nil {
		return ErrInvalidAppEntity.WithDetail("trace link is nil")
	}
	if strings.TrimSpace(app.SourceName) == "" || strings.TrimSpace(app.TargetName) == "" {
		return ErrInvalidAppEntity.WithDetail("trace link requires source and target names")
	}
	switch app.TraceType {
	case entity.TraceTypeManual, entity.TraceTypeGenerated:
		return nil
	default:
		return ErrInvalidAppEntity.WithDetail(fmt.Sprintf("unknown trace type %q", app.TraceType))
	}
}

func newTraceLinkVersion(pv *entity.ProjectVersion, base *entity.TraceLink, mod entity.ModificationType, app *entity.TraceAppEntity) *entity.TraceLinkVersion {
	v := &entity.TraceLinkVersion{
		ProjectVersionID: pv.ID,
		TraceLinkID:      base.ID,
		Modification:     mod,
		Version:          pv,
		TraceLink:        base,
	}
	if mod != entity.ModificationRemoved && app != nil {
		v.TraceType = app.TraceType
		v.ApprovalStatus = app.ApprovalStatus
		v.Score = app.Score
		v.Explanation = app.Explanation
	}
	return v
}

func describeTraceLink(link *entity.TraceLink) string {
	if link.Source != nil && link.Target != nil {
		return link.Source.Name + " -> " + link.Target.Name
	}
	return link.ID
}

// traceStore 把追溯仓储适配为引擎的 Store
type traceStore struct {
	repos TraceRepositories
}

func (s *traceStore) ListProjectVersions(ctx context.Context, projectID string) ([]*entity.TraceLinkVersion, error) {
	return s.repos.Versions.ListByProject(ctx, projectID)
}

func (s *traceStore) ListBaseVersions(ctx context.Context, baseID string) ([]*entity.TraceLinkVersion, error) {
	return s.repos.Versions.ListByLink(ctx, baseID)
}

func (s *traceStore) FindVersion(ctx context.Context, projectVersionID, baseID string) (*entity.TraceLinkVersion, error) {
	return s.repos.Versions.GetByVersionAndLink(ctx, projectVersionID, baseID)
}

func (s *traceStore) SaveVersion(ctx context.Context, v *entity.TraceLinkVersion) error {
	return s.repos.Versions.Save(ctx, v)
}

func (s *traceStore) ListBaseEntities(ctx context.Context, projectID string) ([]*entity.TraceLink, error) {
	return s.repos.Links.ListByProject(ctx, projectID)
}
