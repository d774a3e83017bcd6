package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TraceType 追溯链接来源
type TraceType string

const (
	TraceTypeManual    TraceType = "MANUAL"
	TraceTypeGenerated TraceType = "GENERATED"
)

// ApprovalStatus 追溯链接审核状态
type ApprovalStatus string

const (
	ApprovalUnreviewed ApprovalStatus = "UNREVIEWED"
	ApprovalApproved   ApprovalStatus = "APPROVED"
	ApprovalDeclined   ApprovalStatus = "DECLINED"
)

// TraceLink 追溯链接基础实体，(project_id, source, target) 唯一
type TraceLink struct {
	ID               string    `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID        string    `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:uq_trace_links_endpoints,priority:1"`
	SourceArtifactID string    `json:"source_artifact_id" gorm:"type:uuid;not null;uniqueIndex:uq_trace_links_endpoints,priority:2"`
	TargetArtifactID string    `json:"target_artifact_id" gorm:"type:uuid;not null;uniqueIndex:uq_trace_links_endpoints,priority:3"`
	Source           *Artifact `json:"source,omitempty" gorm:"foreignKey:SourceArtifactID"`
	Target           *Artifact `json:"target,omitempty" gorm:"foreignKey:TargetArtifactID"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (TraceLink) TableName() string {
	return "trace_links"
}

// BeforeCreate 生成主键
func (l *TraceLink) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// EntityID 基础实体 ID
func (l *TraceLink) EntityID() string {
	return l.ID
}

// TraceLinkVersion 追溯链接在某个项目版本上的内容
type TraceLinkVersion struct {
	ID               string           `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectVersionID string           `json:"project_version_id" gorm:"type:uuid;not null;uniqueIndex:uq_trace_link_versions_row,priority:1"`
	TraceLinkID      string           `json:"trace_link_id" gorm:"type:uuid;not null;uniqueIndex:uq_trace_link_versions_row,priority:2;index"`
	Modification     ModificationType `json:"modification_type" gorm:"type:varchar(16);not null"`
	TraceType        TraceType        `json:"trace_type" gorm:"type:varchar(16)"`
	ApprovalStatus   ApprovalStatus   `json:"approval_status" gorm:"type:varchar(16)"`
	Score            float64          `json:"score"`
	Explanation      string           `json:"explanation,omitempty" gorm:"type:text"`
	Version          *ProjectVersion  `json:"version,omitempty" gorm:"foreignKey:ProjectVersionID"`
	TraceLink        *TraceLink       `json:"trace_link,omitempty" gorm:"foreignKey:TraceLinkID"`
	CreatedAt        time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (TraceLinkVersion) TableName() string {
	return "trace_link_versions"
}

// BeforeCreate 生成主键
func (v *TraceLinkVersion) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// BaseEntityID 所属链接 ID
func (v *TraceLinkVersion) BaseEntityID() string {
	return v.TraceLinkID
}

// ProjectVersion 生效版本
func (v *TraceLinkVersion) ProjectVersion() *ProjectVersion {
	return v.Version
}

// ModificationType 变更类型
func (v *TraceLinkVersion) ModificationType() ModificationType {
	return v.Modification
}

// EntityVersionID 行 ID
func (v *TraceLinkVersion) EntityVersionID() string {
	return v.ID
}

// SetEntityVersionID 复用已有行 ID
func (v *TraceLinkVersion) SetEntityVersionID(id string) {
	v.ID = id
}

// IsManual 是否为人工维护的链接
func (v *TraceLinkVersion) IsManual() bool {
	return v.TraceType == TraceTypeManual
}

// HasSameContent 只比较内容
func (v *TraceLinkVersion) HasSameContent(other *TraceLinkVersion) bool {
	if other == nil {
		return false
	}
	return v.TraceType == other.TraceType &&
		v.ApprovalStatus == other.ApprovalStatus &&
		v.Score == other.Score &&
		v.Explanation == other.Explanation
}

// HasSameAppContent 与期望状态比较内容
func (v *TraceLinkVersion) HasSameAppContent(app *TraceAppEntity) bool {
	if app == nil {
		return false
	}
	return v.TraceType == app.TraceType &&
		v.ApprovalStatus == app.ApprovalStatus &&
		v.Score == app.Score &&
		v.Explanation == app.Explanation
}

// TraceAppEntity 调用方提交的追溯链接期望状态
type TraceAppEntity struct {
	SourceName     string         `json:"source_name"`
	TargetName     string         `json:"target_name"`
	TraceType      TraceType      `json:"trace_type"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	Score          float64        `json:"score"`
	Explanation    string         `json:"explanation,omitempty"`
}

// DisplayName 形如 "source -> target"
func (t *TraceAppEntity) DisplayName() string {
	return t.SourceName + " -> " + t.TargetName
}

// NaturalKey 批内去重键
func (t *TraceAppEntity) NaturalKey() string {
	return t.SourceName + "\x00" + t.TargetName
}

// IsManual 是否为人工链接
func (t *TraceAppEntity) IsManual() bool {
	return t.TraceType == TraceTypeManual
}

// TraceMatrix 允许在两种工件类型之间建立追溯链接的记录
type TraceMatrix struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID    string    `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:uq_trace_matrices_types,priority:1"`
	SourceTypeID string    `json:"source_type_id" gorm:"type:uuid;not null;uniqueIndex:uq_trace_matrices_types,priority:2"`
	TargetTypeID string    `json:"target_type_id" gorm:"type:uuid;not null;uniqueIndex:uq_trace_matrices_types,priority:3"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (TraceMatrix) TableName() string {
	return "trace_matrices"
}

// BeforeCreate 生成主键
func (m *TraceMatrix) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
