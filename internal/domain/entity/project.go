// Package entity 定义领域实体
package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tracehub-api/pkg/errors"
)

// Project 追溯项目
type Project struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// BeforeCreate 生成主键
func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// NewProject 创建新项目
func NewProject(name, description string) *Project {
	return &Project{
		Name:        name,
		Description: description,
	}
}

// unsetComponent 未设置版本号的分量取值
const unsetComponent = -1

// ProjectVersion 项目历史中的一个有序版本点 (major, minor, patch)
// 同一项目内三元组唯一，构成严格全序
type ProjectVersion struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID string    `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:uq_project_versions_triple,priority:1"`
	Major     int       `json:"major" gorm:"not null;uniqueIndex:uq_project_versions_triple,priority:2"`
	Minor     int       `json:"minor" gorm:"not null;uniqueIndex:uq_project_versions_triple,priority:3"`
	Patch     int       `json:"patch" gorm:"not null;uniqueIndex:uq_project_versions_triple,priority:4"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ProjectVersion) TableName() string {
	return "project_versions"
}

// BeforeCreate 生成主键，未设置的版本不允许落库
func (v *ProjectVersion) BeforeCreate(*gorm.DB) error {
	if v.IsUnset() {
		return errors.ErrVersionContract.WithDetail("unset project version cannot be persisted")
	}
	if err := v.Validate(); err != nil {
		return err
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// NewProjectVersion 创建项目版本
func NewProjectVersion(projectID string, major, minor, patch int) *ProjectVersion {
	return &ProjectVersion{
		ProjectID: projectID,
		Major:     major,
		Minor:     minor,
		Patch:     patch,
	}
}

// UnsetProjectVersion 返回构造中的占位版本 (-1,-1,-1)
func UnsetProjectVersion(projectID string) *ProjectVersion {
	return NewProjectVersion(projectID, unsetComponent, unsetComponent, unsetComponent)
}

// IsUnset 是否为占位版本
func (v *ProjectVersion) IsUnset() bool {
	return v.Major == unsetComponent && v.Minor == unsetComponent && v.Patch == unsetComponent
}

// Validate 校验三元组：全部非负，或者是占位版本
func (v *ProjectVersion) Validate() error {
	if v.IsUnset() {
		return nil
	}
	if v.Major < 0 || v.Minor < 0 || v.Patch < 0 {
		return errors.ErrVersionContract.WithDetail(fmt.Sprintf("malformed project version %s", v))
	}
	return nil
}

// String 返回 major.minor.patch
func (v *ProjectVersion) String() string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare 比较同一项目的两个版本，返回 -1、0 或 1
// 跨项目比较或三元组非法属于调用方错误，直接 panic
func (v *ProjectVersion) Compare(other *ProjectVersion) int {
	mustBeComparable(v, other)

	switch {
	case v.Major != other.Major:
		return sign(v.Major - other.Major)
	case v.Minor != other.Minor:
		return sign(v.Minor - other.Minor)
	default:
		return sign(v.Patch - other.Patch)
	}
}

// IsLessThan v < other
func (v *ProjectVersion) IsLessThan(other *ProjectVersion) bool {
	return v.Compare(other) < 0
}

// IsLessThanOrEqualTo v <= other
func (v *ProjectVersion) IsLessThanOrEqualTo(other *ProjectVersion) bool {
	return v.Compare(other) <= 0
}

// IsGreaterThan v > other
func (v *ProjectVersion) IsGreaterThan(other *ProjectVersion) bool {
	return v.Compare(other) > 0
}

// SameRank 三元组相同
func (v *ProjectVersion) SameRank(other *ProjectVersion) bool {
	return v.Compare(other) == 0
}

// NextMajor 下一个主版本
func (v *ProjectVersion) NextMajor() *ProjectVersion {
	return NewProjectVersion(v.ProjectID, v.Major+1, 0, 0)
}

// NextMinor 下一个次版本
func (v *ProjectVersion) NextMinor() *ProjectVersion {
	return NewProjectVersion(v.ProjectID, v.Major, v.Minor+1, 0)
}

// NextRevision 下一个修订版本
func (v *ProjectVersion) NextRevision() *ProjectVersion {
	return NewProjectVersion(v.ProjectID, v.Major, v.Minor, v.Patch+1)
}

func mustBeComparable(a, b *ProjectVersion) {
	if a == nil || b == nil {
		panic(errors.ErrVersionContract.WithDetail("nil project version"))
	}
	if a.ProjectID != b.ProjectID {
		panic(errors.ErrVersionContract.WithDetail(
			fmt.Sprintf("cannot compare versions of projects %s and %s", a.ProjectID, b.ProjectID)))
	}
	if err := a.Validate(); err != nil {
		panic(err)
	}
	if err := b.Validate(); err != nil {
		panic(err)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
