package entity

import (
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ArtifactType 项目内的工件类型，名称按大小写不敏感唯一
type ArtifactType struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID string    `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:uq_artifact_types_name,priority:1"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	NameKey   string    `json:"-" gorm:"type:varchar(255);not null;uniqueIndex:uq_artifact_types_name,priority:2"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ArtifactType) TableName() string {
	return "artifact_types"
}

// BeforeSave 维护大小写不敏感的唯一键
func (t *ArtifactType) BeforeSave(*gorm.DB) error {
	t.NameKey = NormalizeTypeName(t.Name)
	return nil
}

// BeforeCreate 生成主键
func (t *ArtifactType) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.NameKey = NormalizeTypeName(t.Name)
	return nil
}

// NormalizeTypeName 类型名比较键
func NormalizeTypeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Artifact 工件基础实体，(project_id, name) 唯一
type Artifact struct {
	ID        string        `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID string        `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:uq_artifacts_name,priority:1"`
	Name      string        `json:"name" gorm:"type:varchar(512);not null;uniqueIndex:uq_artifacts_name,priority:2"`
	TypeID    string        `json:"type_id" gorm:"type:uuid;not null;index"`
	Type      *ArtifactType `json:"type,omitempty" gorm:"foreignKey:TypeID"`
	CreatedAt time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Artifact) TableName() string {
	return "artifacts"
}

// BeforeCreate 生成主键
func (a *Artifact) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// EntityID 基础实体 ID
func (a *Artifact) EntityID() string {
	return a.ID
}

// TypeName 返回类型名（未预加载时为空）
func (a *Artifact) TypeName() string {
	if a.Type == nil {
		return ""
	}
	return a.Type.Name
}

// ArtifactVersion 工件在某个项目版本上的内容
type ArtifactVersion struct {
	ID               string            `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectVersionID string            `json:"project_version_id" gorm:"type:uuid;not null;uniqueIndex:uq_artifact_versions_row,priority:1"`
	ArtifactID       string            `json:"artifact_id" gorm:"type:uuid;not null;uniqueIndex:uq_artifact_versions_row,priority:2;index"`
	Modification     ModificationType  `json:"modification_type" gorm:"type:varchar(16);not null"`
	Summary          string            `json:"summary" gorm:"type:text"`
	Body             string            `json:"body" gorm:"type:text"`
	CustomFields     map[string]string `json:"custom_fields,omitempty" gorm:"type:jsonb;serializer:json"`
	Version          *ProjectVersion   `json:"version,omitempty" gorm:"foreignKey:ProjectVersionID"`
	Artifact         *Artifact         `json:"artifact,omitempty" gorm:"foreignKey:ArtifactID"`
	CreatedAt        time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (ArtifactVersion) TableName() string {
	return "artifact_versions"
}

// BeforeCreate 生成主键
func (v *ArtifactVersion) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// BaseEntityID 所属工件 ID
func (v *ArtifactVersion) BaseEntityID() string {
	return v.ArtifactID
}

// ProjectVersion 生效版本
func (v *ArtifactVersion) ProjectVersion() *ProjectVersion {
	return v.Version
}

// ModificationType 变更类型
func (v *ArtifactVersion) ModificationType() ModificationType {
	return v.Modification
}

// EntityVersionID 行 ID
func (v *ArtifactVersion) EntityVersionID() string {
	return v.ID
}

// SetEntityVersionID 复用已有行 ID，实现同版本原地覆盖
func (v *ArtifactVersion) SetEntityVersionID(id string) {
	v.ID = id
}

// HasSameContent 只比较内容，不比较版本与变更类型
func (v *ArtifactVersion) HasSameContent(other *ArtifactVersion) bool {
	if other == nil {
		return false
	}
	return v.Summary == other.Summary &&
		v.Body == other.Body &&
		maps.Equal(v.CustomFields, other.CustomFields)
}

// HasSameAppContent 与期望状态比较内容
func (v *ArtifactVersion) HasSameAppContent(app *ArtifactAppEntity) bool {
	if app == nil {
		return false
	}
	return v.Summary == app.Summary &&
		v.Body == app.Body &&
		maps.Equal(v.CustomFields, app.CustomFields)
}

// ArtifactAppEntity 调用方提交的工件期望状态
type ArtifactAppEntity struct {
	ID           string            `json:"id,omitempty"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Summary      string            `json:"summary"`
	Body         string            `json:"body"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

// DisplayName 用于错误报告的名称
func (a *ArtifactAppEntity) DisplayName() string {
	return a.Name
}

// NaturalKey 批内去重键
func (a *ArtifactAppEntity) NaturalKey() string {
	return a.Name
}
