package versioning

import (
	"context"
	"sort"

	"tracehub-api/internal/domain/entity"
	"tracehub-api/pkg/tracer"
)

// EntitiesAtVersion 返回 pv 上存活的版本行，每个基础实体一行，按基础实体 ID 排序
func (e *Engine[B, V, A]) EntitiesAtVersion(ctx context.Context, pv *entity.ProjectVersion) ([]V, error) {
	ctx, span := tracer.Start(ctx, "versioning.Engine.EntitiesAtVersion")
	defer span.End()

	rows, err := e.store.ListProjectVersions(ctx, pv.ProjectID)
	if err != nil {
		return nil, err
	}
	return snapshotAt(rows, pv), nil
}

// EntityAt 单个基础实体在 pv 上的有效行，不存在或已删除时返回零值
func (e *Engine[B, V, A]) EntityAt(ctx context.Context, baseID string, pv *entity.ProjectVersion) (V, error) {
	return e.effective(ctx, baseID, AtOrBefore(pv))
}

// EntityBefore 单个基础实体在 pv 之前的有效行
func (e *Engine[B, V, A]) EntityBefore(ctx context.Context, baseID string, pv *entity.ProjectVersion) (V, error) {
	return e.effective(ctx, baseID, Before(pv))
}

// History 基础实体的全部版本行，按版本升序
func (e *Engine[B, V, A]) History(ctx context.Context, baseID string) ([]V, error) {
	rows, err := e.store.ListBaseVersions(ctx, baseID)
	if err != nil {
		return nil, err
	}
	sortByVersion(rows)
	return rows, nil
}

func (e *Engine[B, V, A]) effective(ctx context.Context, baseID string, pred func(*entity.ProjectVersion) bool) (V, error) {
	var zero V
	rows, err := e.store.ListBaseVersions(ctx, baseID)
	if err != nil {
		return zero, err
	}
	latest := LatestWithFilter(rows, pred)
	if !isLive(latest) {
		return zero, nil
	}
	return latest, nil
}

type snapshotRow[V any] interface {
	Diffable[V]
	BaseEntityID() string
	ProjectVersion() *entity.ProjectVersion
}

// snapshotAt 按基础实体分组，取 <= pv 的最新行并剔除 REMOVED
func snapshotAt[V snapshotRow[V]](rows []V, pv *entity.ProjectVersion) []V {
	groups := make(map[string][]V)
	for _, row := range rows {
		groups[row.BaseEntityID()] = append(groups[row.BaseEntityID()], row)
	}

	out := make([]V, 0, len(groups))
	for _, group := range groups {
		latest := LatestWithFilter(group, AtOrBefore(pv))
		if isLive(latest) {
			out = append(out, latest)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].BaseEntityID() < out[j].BaseEntityID()
	})
	return out
}

func sortByVersion[V Versioned](rows []V) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ProjectVersion().IsLessThan(rows[j].ProjectVersion())
	})
}
