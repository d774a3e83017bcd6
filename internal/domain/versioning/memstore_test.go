package versioning

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"tracehub-api/internal/domain/entity"
	"tracehub-api/pkg/errors"
)

// memDB 内存实现的仓储，模拟唯一约束与版本预加载
type memDB struct {
	mu sync.Mutex
	seq int

	versions         map[string]*entity.ProjectVersion
	artifacts        []*entity.Artifact
	types            []*entity.ArtifactType
	artifactVersions []*entity.ArtifactVersion
	links            []*entity.TraceLink
	linkVersions     []*entity.TraceLinkVersion
	matrices         []*entity.TraceMatrix

	// failArtifactSave 返回非空时拒绝该工件版本行的写入
	failArtifactSave func(v *entity.ArtifactVersion) error
}

func newMemDB() *memDB {
	return &memDB{versions: make(map[string]*entity.ProjectVersion)}
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%03d", prefix, db.seq)
}

func (db *memDB) addVersion(projectID string, major, minor, patch int) *entity.ProjectVersion {
	db.mu.Lock()
	defer db.mu.Unlock()
	pv := entity.NewProjectVersion(projectID, major, minor, patch)
	pv.ID = db.nextID("pv")
	db.versions[pv.ID] = pv
	return pv
}

func (db *memDB) artifactRepos() ArtifactRepositories {
	return ArtifactRepositories{
		Artifacts: memArtifacts{db},
		Types:     memTypes{db},
		Versions:  memArtifactVersions{db},
	}
}

func (db *memDB) traceRepos() TraceRepositories {
	return TraceRepositories{
		Artifacts: memArtifacts{db},
		Links:     memLinks{db},
		Versions:  memLinkVersions{db},
		Matrices:  memMatrices{db},
	}
}

type memArtifacts struct{ db *memDB }

func (r memArtifacts) Create(_ context.Context, a *entity.Artifact) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.artifacts {
		if existing.ProjectID == a.ProjectID && existing.Name == a.Name {
			return errors.ErrIntegrityViolation.WithDetail("artifact name")
		}
	}
	a.ID = r.db.nextID("art")
	cp := *a
	r.db.artifacts = append(r.db.artifacts, &cp)
	return nil
}

func (r memArtifacts) GetByID(_ context.Context, projectID, id string) (*entity.Artifact, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.artifacts {
		if a.ProjectID == projectID && a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memArtifacts) GetByName(_ context.Context, projectID, name string) (*entity.Artifact, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.artifacts {
		if a.ProjectID == projectID && a.Name == name {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memArtifacts) ListByProject(_ context.Context, projectID string) ([]*entity.Artifact, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.Artifact
	for _, a := range r.db.artifacts {
		if a.ProjectID == projectID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memArtifacts) UpdateType(_ context.Context, id, typeID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.artifacts {
		if a.ID == id {
			a.TypeID = typeID
			return nil
		}
	}
	return errors.ErrArtifactNotFound
}

type memTypes struct{ db *memDB }

func (r memTypes) Create(_ context.Context, t *entity.ArtifactType) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t.ID = r.db.nextID("type")
	t.NameKey = entity.NormalizeTypeName(t.Name)
	cp := *t
	r.db.types = append(r.db.types, &cp)
	return nil
}

func (r memTypes) GetByName(_ context.Context, projectID, name string) (*entity.ArtifactType, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.types {
		if t.ProjectID == projectID && t.NameKey == entity.NormalizeTypeName(name) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memTypes) ListByProject(_ context.Context, projectID string) ([]*entity.ArtifactType, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.ArtifactType
	for _, t := range r.db.types {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memArtifactVersions struct{ db *memDB }

func (r memArtifactVersions) Save(_ context.Context, v *entity.ArtifactVersion) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failArtifactSave != nil {
		if err := r.db.failArtifactSave(v); err != nil {
			return err
		}
	}
	cp := *v
	cp.Artifact = nil
	if v.ID != "" {
		for i, existing := range r.db.artifactVersions {
			if existing.ID == v.ID {
				r.db.artifactVersions[i] = &cp
				return nil
			}
		}
	}
	for _, existing := range r.db.artifactVersions {
		if existing.ProjectVersionID == v.ProjectVersionID && existing.ArtifactID == v.ArtifactID {
			return errors.ErrIntegrityViolation.WithDetail("artifact version row")
		}
	}
	v.ID = r.db.nextID("av")
	cp.ID = v.ID
	r.db.artifactVersions = append(r.db.artifactVersions, &cp)
	return nil
}

func (r memArtifactVersions) withVersion(v *entity.ArtifactVersion) *entity.ArtifactVersion {
	cp := *v
	cp.Version = r.db.versions[v.ProjectVersionID]
	return &cp
}

func (r memArtifactVersions) GetByVersionAndArtifact(_ context.Context, projectVersionID, artifactID string) (*entity.ArtifactVersion, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, v := range r.db.artifactVersions {
		if v.ProjectVersionID == projectVersionID && v.ArtifactID == artifactID {
			return r.withVersion(v), nil
		}
	}
	return nil, nil
}

func (r memArtifactVersions) ListByArtifact(_ context.Context, artifactID string) ([]*entity.ArtifactVersion, error) {
	return r.filter(func(v *entity.ArtifactVersion) bool { return v.ArtifactID == artifactID }), nil
}

func (r memArtifactVersions) ListByProject(_ context.Context, projectID string) ([]*entity.ArtifactVersion, error) {
	return r.filter(func(v *entity.ArtifactVersion) bool {
		return r.db.versions[v.ProjectVersionID].ProjectID == projectID
	}), nil
}

func (r memArtifactVersions) ListByProjectVersion(_ context.Context, projectVersionID string) ([]*entity.ArtifactVersion, error) {
	return r.filter(func(v *entity.ArtifactVersion) bool { return v.ProjectVersionID == projectVersionID }), nil
}

func (r memArtifactVersions) filter(keep func(*entity.ArtifactVersion) bool) []*entity.ArtifactVersion {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.ArtifactVersion
	for _, v := range r.db.artifactVersions {
		if keep(v) {
			out = append(out, r.withVersion(v))
		}
	}
	return out
}

type memLinks struct{ db *memDB }

func (r memLinks) Create(_ context.Context, l *entity.TraceLink) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l.ID = r.db.nextID("link")
	cp := *l
	r.db.links = append(r.db.links, &cp)
	return nil
}

func (r memLinks) artifactName(id string) string {
	for _, a := range r.db.artifacts {
		if a.ID == id {
			return a.Name
		}
	}
	return ""
}

func (r memLinks) GetByEndpoints(_ context.Context, projectID, sourceName, targetName string) (*entity.TraceLink, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, l := range r.db.links {
		if l.ProjectID == projectID && r.artifactName(l.SourceArtifactID) == sourceName && r.artifactName(l.TargetArtifactID) == targetName {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memLinks) ListByProject(_ context.Context, projectID string) ([]*entity.TraceLink, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.TraceLink
	for _, l := range r.db.links {
		if l.ProjectID == projectID {
			cp := *l
			cp.Source = &entity.Artifact{ID: l.SourceArtifactID, Name: r.artifactName(l.SourceArtifactID)}
			cp.Target = &entity.Artifact{ID: l.TargetArtifactID, Name: r.artifactName(l.TargetArtifactID)}
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memLinkVersions struct{ db *memDB }

func (r memLinkVersions) Save(_ context.Context, v *entity.TraceLinkVersion) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *v
	cp.TraceLink = nil
	if v.ID != "" {
		for i, existing := range r.db.linkVersions {
			if existing.ID == v.ID {
				r.db.linkVersions[i] = &cp
				return nil
			}
		}
	}
	v.ID = r.db.nextID("tv")
	cp.ID = v.ID
	r.db.linkVersions = append(r.db.linkVersions, &cp)
	return nil
}

func (r memLinkVersions) withVersion(v *entity.TraceLinkVersion) *entity.TraceLinkVersion {
	cp := *v
	cp.Version = r.db.versions[v.ProjectVersionID]
	return &cp
}

func (r memLinkVersions) GetByVersionAndLink(_ context.Context, projectVersionID, linkID string) (*entity.TraceLinkVersion, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, v := range r.db.linkVersions {
		if v.ProjectVersionID == projectVersionID && v.TraceLinkID == linkID {
			return r.withVersion(v), nil
		}
	}
	return nil, nil
}

func (r memLinkVersions) ListByLink(_ context.Context, linkID string) ([]*entity.TraceLinkVersion, error) {
	return r.filter(func(v *entity.TraceLinkVersion) bool { return v.TraceLinkID == linkID }), nil
}

func (r memLinkVersions) ListByProject(_ context.Context, projectID string) ([]*entity.TraceLinkVersion, error) {
	return r.filter(func(v *entity.TraceLinkVersion) bool {
		return r.db.versions[v.ProjectVersionID].ProjectID == projectID
	}), nil
}

func (r memLinkVersions) ListByProjectVersion(_ context.Context, projectVersionID string) ([]*entity.TraceLinkVersion, error) {
	return r.filter(func(v *entity.TraceLinkVersion) bool { return v.ProjectVersionID == projectVersionID }), nil
}

func (r memLinkVersions) filter(keep func(*entity.TraceLinkVersion) bool) []*entity.TraceLinkVersion {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.TraceLinkVersion
	for _, v := range r.db.linkVersions {
		if keep(v) {
			out = append(out, r.withVersion(v))
		}
	}
	return out
}

type memMatrices struct{ db *memDB }

func (r memMatrices) Create(_ context.Context, m *entity.TraceMatrix) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m.ID = r.db.nextID("matrix")
	cp := *m
	r.db.matrices = append(r.db.matrices, &cp)
	return nil
}

func (r memMatrices) Get(_ context.Context, projectID, sourceTypeID, targetTypeID string) (*entity.TraceMatrix, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, m := range r.db.matrices {
		if m.ProjectID == projectID && m.SourceTypeID == sourceTypeID && m.TargetTypeID == targetTypeID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memMatrices) ListByProject(_ context.Context, projectID string) ([]*entity.TraceMatrix, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.TraceMatrix
	for _, m := range r.db.matrices {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

// countingTx 记录保存点次数的事务桩
type countingTx struct {
	calls int
}

func (tx *countingTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.calls++
	return fn(ctx)
}

func artifactNames(rows []*entity.ArtifactVersion, db *memDB) []string {
	var names []string
	for _, row := range rows {
		for _, a := range db.artifacts {
			if a.ID == row.ArtifactID {
				names = append(names, a.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func joined(names []string) string {
	return strings.Join(names, ",")
}
