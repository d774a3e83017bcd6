package versioning

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"tracehub-api/internal/domain/entity"
	"tracehub-api/internal/domain/repository"
)

// ArtifactEngine 工件版本化引擎
type ArtifactEngine = Engine[*entity.Artifact, *entity.ArtifactVersion, *entity.ArtifactAppEntity]

// ArtifactRepositories 工件绑定依赖的仓储
type ArtifactRepositories struct {
	Artifacts repository.ArtifactRepository
	Types     repository.ArtifactTypeRepository
	Versions  repository.ArtifactVersionRepository
}

// NewArtifactEngine 创建工件引擎
func NewArtifactEngine(repos ArtifactRepositories, tx repository.Transactor) (*ArtifactEngine, error) {
	b := &artifactBinding{repos: repos}
	return New(
		&artifactStore{repos: repos},
		Binding[*entity.Artifact, *entity.ArtifactVersion, *entity.ArtifactAppEntity]{
			Kind:       entity.ActivityArtifacts,
			Noun:       "artifact",
			Resolve:    b.resolve,
			Lookup:     b.lookup,
			NewVersion: newArtifactVersion,
			Describe:   func(a *entity.Artifact) string { return a.Name },
		},
		tx,
	)
}

type artifactBinding struct {
	repos ArtifactRepositories
}

// resolve 按 ID、名称依次查找工件，找不到时创建；类型按名称大小写不敏感匹配
func (b *artifactBinding) resolve(ctx context.Context, pv *entity.ProjectVersion, app *entity.ArtifactAppEntity) (*entity.Artifact, error) {
	if err := validateArtifactApp(app); err != nil {
		return nil, err
	}

	artifactType, err := b.ensureType(ctx, pv.ProjectID, app.Type)
	if err != nil {
		return nil, err
	}

	artifact, err := b.lookup(ctx, pv, app)
	if err != nil {
		return nil, err
	}

	if artifact == nil {
		artifact = &entity.Artifact{
			ProjectID: pv.ProjectID,
			Name:      app.Name,
			TypeID:    artifactType.ID,
		}
		if err := b.repos.Artifacts.Create(ctx, artifact); err != nil {
			return nil, fmt.Errorf("failed to save artifact %q: %w", app.Name, err)
		}
	} else if artifact.TypeID != artifactType.ID {
		if err := b.repos.Artifacts.UpdateType(ctx, artifact.ID, artifactType.ID); err != nil {
			return nil, fmt.Errorf("failed to save artifact %q: %w", app.Name, err)
		}
		artifact.TypeID = artifactType.ID
	}
	artifact.Type = artifactType
	return artifact, nil
}

// lookup ID 命中时名称必须一致；工件名不随版本变化，不支持借提交改名
// 只给 ID 不给名称时，ID 不存在即报错
func (b *artifactBinding) lookup(ctx context.Context, pv *entity.ProjectVersion, app *entity.ArtifactAppEntity) (*entity.Artifact, error) {
	if app.ID != "" {
		artifact, err := b.repos.Artifacts.GetByID(ctx, pv.ProjectID, app.ID)
		if err != nil {
			return nil, err
		}
		if artifact != nil {
			if app.Name != "" && artifact.Name != app.Name {
				return nil, ErrInvalidAppEntity.WithDetail(fmt.Sprintf("artifact %s is named %q, not %q", app.ID, artifact.Name, app.Name))
			}
			return artifact, nil
		}
		if app.Name == "" {
			return nil, ErrArtifactNotFound.WithDetail(app.ID)
		}
	}
	return b.repos.Artifacts.GetByName(ctx, pv.ProjectID, app.Name)
}

func (b *artifactBinding) ensureType(ctx context.Context, projectID, name string) (*entity.ArtifactType, error) {
	artifactType, err := b.repos.Types.GetByName(ctx, projectID, name)
	if err != nil {
		return nil, err
	}
	if artifactType != nil {
		return artifactType, nil
	}

	artifactType = &entity.ArtifactType{ProjectID: projectID, Name: strings.TrimSpace(name)}
	if err := b.repos.Types.Create(ctx, artifactType); err != nil {
		return nil, fmt.Errorf("failed to save artifact type %q: %w", name, err)
	}
	return artifactType, nil
}

func validateArtifactApp(app *entity.ArtifactAppEntity) error {
	if app == nil {
		return ErrInvalidAppEntity.WithDetail("artifact is nil")
	}
	if strings.TrimSpace(app.Name) == "" {
		return ErrInvalidAppEntity.WithDetail("artifact name is required")
	}
	if strings.TrimSpace(app.Type) == "" {
		return ErrInvalidAppEntity.WithDetail(fmt.Sprintf("artifact %q has no type", app.Name))
	}
	return nil
}

// newArtifactVersion REMOVED 行不携带内容
func newArtifactVersion(pv *entity.ProjectVersion, base *entity.Artifact, mod entity.ModificationType, app *entity.ArtifactAppEntity) *entity.ArtifactVersion {
	v := &entity.ArtifactVersion{
		ProjectVersionID: pv.ID,
		ArtifactID:       base.ID,
		Modification:     mod,
		Version:          pv,
		Artifact:         base,
	}
	if mod != entity.ModificationRemoved && app != nil {
		v.Summary = app.Summary
		v.Body = app.Body
		v.CustomFields = maps.Clone(app.CustomFields)
	}
	return v
}

// artifactStore 把工件仓储适配为引擎的 Store
type artifactStore struct {
	repos ArtifactRepositories
}

func (s *artifactStore) ListProjectVersions(ctx context.Context, projectID string) ([]*entity.ArtifactVersion, error) {
	return s.repos.Versions.ListByProject(ctx, projectID)
}

func (s *artifactStore) ListBaseVersions(ctx context.Context, baseID string) ([]*entity.ArtifactVersion, error) {
	return s.repos.Versions.ListByArtifact(ctx, baseID)
}

func (s *artifactStore) FindVersion(ctx context.Context, projectVersionID, baseID string) (*entity.ArtifactVersion, error) {
	return s.repos.Versions.GetByVersionAndArtifact(ctx, projectVersionID, baseID)
}

func (s *artifactStore) SaveVersion(ctx context.Context, v *entity.ArtifactVersion) error {
	return s.repos.Versions.Save(ctx, v)
}

func (s *artifactStore) ListBaseEntities(ctx context.Context, projectID string) ([]*entity.Artifact, error) {
	return s.repos.Artifacts.ListByProject(ctx, projectID)
}
