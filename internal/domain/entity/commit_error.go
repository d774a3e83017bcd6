package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommitError 批处理中单个实体的可恢复错误
type CommitError struct {
	ID               string         `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectVersionID string         `json:"project_version_id" gorm:"type:uuid;not null;index"`
	Activity         CommitActivity `json:"activity" gorm:"type:varchar(16);not null"`
	EntityName       string         `json:"entity_name,omitempty" gorm:"type:varchar(1024)"`
	Description      string         `json:"description" gorm:"type:text;not null"`
	CreatedAt        time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (CommitError) TableName() string {
	return "commit_errors"
}

// BeforeCreate 生成主键
func (e *CommitError) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// NewCommitError 创建提交错误
func NewCommitError(projectVersionID string, activity CommitActivity, entityName, description string) *CommitError {
	return &CommitError{
		ProjectVersionID: projectVersionID,
		Activity:         activity,
		EntityName:       entityName,
		Description:      description,
	}
}
