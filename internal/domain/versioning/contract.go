// Package versioning 实现版本化实体的通用引擎：
// 推断变更类型、重建任意版本的快照，并按批次应用期望状态。
package versioning

import (
	"context"
	"fmt"

	"tracehub-api/internal/domain/entity"
)

// BaseEntity 跨版本保持身份的实体（工件、追溯链接）
type BaseEntity interface {
	comparable
	EntityID() string
}

// AppEntity 调用方提交的期望状态
type AppEntity interface {
	comparable
	DisplayName() string
	NaturalKey() string
}

// Versioned 带生效版本的行
type Versioned interface {
	comparable
	ProjectVersion() *entity.ProjectVersion
}

// Diffable 可以两两比较内容的版本行
type Diffable[V any] interface {
	comparable
	ModificationType() entity.ModificationType
	HasSameContent(V) bool
}

// VersionEntity 基础实体在某个项目版本上的内容
// 类型参数的零值（nil 指针）表示“不存在”
type VersionEntity[V any, A any] interface {
	comparable
	BaseEntityID() string
	ProjectVersion() *entity.ProjectVersion
	ModificationType() entity.ModificationType
	HasSameContent(V) bool
	HasSameAppContent(A) bool
	EntityVersionID() string
	SetEntityVersionID(string)
}

// Store 引擎依赖的持久化能力
// 返回的版本行必须带有已加载的 ProjectVersion
type Store[B BaseEntity, V any] interface {
	// ListProjectVersions 项目内全部版本行
	ListProjectVersions(ctx context.Context, projectID string) ([]V, error)
	// ListBaseVersions 单个基础实体的全部版本行
	ListBaseVersions(ctx context.Context, baseID string) ([]V, error)
	// FindVersion 指定版本上的行，不存在时返回零值
	FindVersion(ctx context.Context, projectVersionID, baseID string) (V, error)
	// SaveVersion 插入或按 ID 覆盖
	SaveVersion(ctx context.Context, v V) error
	// ListBaseEntities 项目内全部基础实体
	ListBaseEntities(ctx context.Context, projectID string) ([]B, error)
}

// Binding 每种实体的解析与构造策略
type Binding[B BaseEntity, V VersionEntity[V, A], A AppEntity] struct {
	// Kind 提交错误的类别
	Kind entity.CommitActivity
	// Noun 错误信息中的实体名，如 "artifact"
	Noun string
	// Resolve 解析或创建基础实体
	Resolve func(ctx context.Context, pv *entity.ProjectVersion, app A) (B, error)
	// Lookup 只解析不创建，不存在时返回零值
	Lookup func(ctx context.Context, pv *entity.ProjectVersion, app A) (B, error)
	// NewVersion 构造版本行；REMOVED 时 app 为零值，内容留空
	NewVersion func(pv *entity.ProjectVersion, base B, mod entity.ModificationType, app A) V
	// Guard 在比较内容之前执行的领域规则，可为空
	Guard func(ctx context.Context, pv *entity.ProjectVersion, base B, app A) error
	// Describe 隐式删除时用于错误报告的名称，可为空
	Describe func(base B) string
}

func (b Binding[B, V, A]) validate() error {
	if b.Kind == "" || b.Resolve == nil || b.Lookup == nil || b.NewVersion == nil {
		return fmt.Errorf("versioning binding %q is incomplete", b.Kind)
	}
	return nil
}

// Mode 批处理模式
type Mode string

const (
	// ModeCompleteSet 输入是完整集合，未引用的基础实体被隐式删除
	ModeCompleteSet Mode = "complete_set"
	// ModeDelta 只处理输入中的实体
	ModeDelta Mode = "delta"
)

// ParseMode 解析模式字符串
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCompleteSet:
		return ModeCompleteSet, nil
	case ModeDelta:
		return ModeDelta, nil
	default:
		return "", fmt.Errorf("unknown batch mode %q", s)
	}
}

// NoChange 表示无需写入新行
const NoChange entity.ModificationType = ""

// BatchResult 批处理结果
type BatchResult[V any] struct {
	Versions []V
	Errors   []*entity.CommitError
}
