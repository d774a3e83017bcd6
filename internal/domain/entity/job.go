package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobType 任务类型
type JobType string

const (
	// JobTypeUpload 完整集合上传，未出现的实体视为删除
	JobTypeUpload JobType = "upload"
	// JobTypeCommit 增量提交
	JobTypeCommit JobType = "commit"
)

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal 是否已结束
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// CommitPayload 一次提交携带的期望状态
type CommitPayload struct {
	Artifacts []*ArtifactAppEntity `json:"artifacts,omitempty"`
	Traces    []*TraceAppEntity    `json:"traces,omitempty"`
}

// Size 实体总数
func (p *CommitPayload) Size() int {
	if p == nil {
		return 0
	}
	return len(p.Artifacts) + len(p.Traces)
}

// JobResult 任务完成后的统计
type JobResult struct {
	ArtifactRows   int `json:"artifact_rows"`
	TraceRows      int `json:"trace_rows"`
	ArtifactErrors int `json:"artifact_errors"`
	TraceErrors    int `json:"trace_errors"`
}

// Job 异步提交任务
type Job struct {
	ID               string         `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID        string         `json:"project_id" gorm:"type:uuid;not null;index"`
	ProjectVersionID string         `json:"project_version_id" gorm:"type:uuid;not null;index"`
	JobType          JobType        `json:"job_type" gorm:"type:varchar(16);not null"`
	Status           JobStatus      `json:"status" gorm:"type:varchar(16);not null;index"`
	CurrentStep      string         `json:"current_step,omitempty" gorm:"type:varchar(64)"`
	Progress         int            `json:"progress"` // 任务进度 (0-100)
	Payload          *CommitPayload `json:"-" gorm:"type:jsonb;serializer:json"`
	Result           *JobResult     `json:"result,omitempty" gorm:"type:jsonb;serializer:json"`
	ErrorMessage     string         `json:"error_message,omitempty" gorm:"type:text"`
	RetryCount       int            `json:"retry_count"`
	CreatedAt        time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}

// TableName 指定表名
func (Job) TableName() string {
	return "jobs"
}

// BeforeCreate 生成主键
func (j *Job) BeforeCreate(*gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}

// NewJob 创建新任务
func NewJob(projectID, projectVersionID string, jobType JobType, payload *CommitPayload) *Job {
	return &Job{
		ProjectID:        projectID,
		ProjectVersionID: projectVersionID,
		JobType:          jobType,
		Status:           JobStatusPending,
		Payload:          payload,
	}
}

// Start 开始执行任务
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.ErrorMessage = ""
}

// EnterStep 记录当前步骤与进度
func (j *Job) EnterStep(step string, progress int) {
	j.CurrentStep = step
	j.Progress = clampProgress(progress)
}

// Complete 完成任务
func (j *Job) Complete(result *JobResult) {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.Result = result
	j.Progress = 100
	j.CompletedAt = &now
}

// Fail 任务失败
func (j *Job) Fail(errMsg string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.CompletedAt = &now
}

// Cancel 取消任务
func (j *Job) Cancel() {
	now := time.Now()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
}

// Retry 重试任务
func (j *Job) Retry() {
	j.RetryCount++
	j.Status = JobStatusPending
	j.StartedAt = nil
	j.CompletedAt = nil
	j.ErrorMessage = ""
}

// CanRetry 检查是否可以重试
func (j *Job) CanRetry(maxRetries int) bool {
	return j.RetryCount < maxRetries && j.Status == JobStatusFailed
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
