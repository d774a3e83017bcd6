package versioning

import (
	"tracehub-api/internal/domain/entity"
)

// isLive 行存在且不是 REMOVED
func isLive[V Diffable[V]](v V) bool {
	var zero V
	return v != zero && v.ModificationType() != entity.ModificationRemoved
}

// CalculateModificationType 比较两个快照得出变更类型
// REMOVED 行视为不存在：removed -> present 为 ADDED，present -> removed 为 REMOVED
func CalculateModificationType[V Diffable[V]](before, after V) entity.ModificationType {
	return classify(isLive(before), isLive(after), func() bool {
		return before.HasSameContent(after)
	})
}

// classify 变更类型判定表
func classify(beforeLive, afterLive bool, sameContent func() bool) entity.ModificationType {
	switch {
	case !beforeLive && !afterLive:
		return NoChange
	case !beforeLive:
		return entity.ModificationAdded
	case !afterLive:
		return entity.ModificationRemoved
	case sameContent():
		return NoChange
	default:
		return entity.ModificationModified
	}
}

// LatestWithFilter 返回满足 pred 的最大版本行，没有时返回零值
func LatestWithFilter[V Versioned](rows []V, pred func(*entity.ProjectVersion) bool) V {
	var latest V
	for _, row := range rows {
		pv := row.ProjectVersion()
		if !pred(pv) {
			continue
		}
		var zero V
		if latest == zero || pv.IsGreaterThan(latest.ProjectVersion()) {
			latest = row
		}
	}
	return latest
}

// AtOrBefore 谓词：版本 <= pv
func AtOrBefore(pv *entity.ProjectVersion) func(*entity.ProjectVersion) bool {
	return func(v *entity.ProjectVersion) bool {
		return v.IsLessThanOrEqualTo(pv)
	}
}

// Before 谓词：版本 < pv
func Before(pv *entity.ProjectVersion) func(*entity.ProjectVersion) bool {
	return func(v *entity.ProjectVersion) bool {
		return v.IsLessThan(pv)
	}
}
