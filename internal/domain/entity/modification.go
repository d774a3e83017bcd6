package entity

// ModificationType 版本行相对于前一状态的变更类型
type ModificationType string

const (
	ModificationAdded    ModificationType = "ADDED"
	ModificationModified ModificationType = "MODIFIED"
	ModificationRemoved  ModificationType = "REMOVED"
)

// IsValid 是否为已知类型
func (m ModificationType) IsValid() bool {
	switch m {
	case ModificationAdded, ModificationModified, ModificationRemoved:
		return true
	default:
		return false
	}
}

// CommitActivity 提交错误所属的实体类别
type CommitActivity string

const (
	ActivityArtifacts CommitActivity = "ARTIFACTS"
	ActivityTraces    CommitActivity = "TRACES"
)
