package dto

import (
	"time"

	"tracehub-api/internal/domain/entity"
)

// SubmitJobRequest 异步提交请求，job_type 为 upload 时按完整集合处理
type SubmitJobRequest struct {
	JobType   string                      `json:"job_type" binding:"required,oneof=upload commit"`
	Artifacts []*entity.ArtifactAppEntity `json:"artifacts"`
	Traces    []*entity.TraceAppEntity    `json:"traces"`
}

// Payload 任务载荷
func (r *SubmitJobRequest) Payload() *entity.CommitPayload {
	return &entity.CommitPayload{
		Artifacts: r.Artifacts,
		Traces:    r.Traces,
	}
}

// JobResponse 任务响应
type JobResponse struct {
	ID          string            `json:"id"`
	ProjectID   string            `json:"project_id"`
	VersionID   string            `json:"version_id"`
	JobType     string            `json:"job_type"`
	Status      string            `json:"status"`
	CurrentStep string            `json:"current_step,omitempty"`
	Progress    int               `json:"progress"`
	Result      *entity.JobResult `json:"result,omitempty"`
	ErrorMsg    string            `json:"error_msg,omitempty"`
	RetryCount  int               `json:"retry_count"`
	StartedAt   time.Time         `json:"started_at,omitempty"`
	CompletedAt time.Time         `json:"completed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// JobListResponse 任务列表响应
type JobListResponse struct {
	Jobs []*JobResponse `json:"jobs"`
}

// CancelJobResponse 取消任务响应
type CancelJobResponse struct {
	ID        string `json:"id"`
	Cancelled bool   `json:"cancelled"`
}

// ToJobResponse 将领域实体转换为响应 DTO
func ToJobResponse(j *entity.Job) *JobResponse {
	if j == nil {
		return nil
	}

	resp := &JobResponse{
		ID:          j.ID,
		ProjectID:   j.ProjectID,
		VersionID:   j.ProjectVersionID,
		JobType:     string(j.JobType),
		Status:      string(j.Status),
		CurrentStep: j.CurrentStep,
		Progress:    j.Progress,
		Result:      j.Result,
		ErrorMsg:    j.ErrorMessage,
		RetryCount:  j.RetryCount,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}

	if j.StartedAt != nil {
		resp.StartedAt = *j.StartedAt
	}
	if j.CompletedAt != nil {
		resp.CompletedAt = *j.CompletedAt
	}

	return resp
}

// ToJobListResponse 将领域实体列表转换为响应 DTO
func ToJobListResponse(jobs []*entity.Job) *JobListResponse {
	resp := &JobListResponse{
		Jobs: make([]*JobResponse, 0, len(jobs)),
	}

	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, ToJobResponse(j))
	}

	return resp
}
