package dto

import (
	"time"

	"tracehub-api/internal/application/commit"
	"tracehub-api/internal/domain/entity"
)

// CommitRequest 同步提交请求
type CommitRequest struct {
	Mode      string                      `json:"mode" binding:"omitempty,oneof=complete_set delta"`
	Artifacts []*entity.ArtifactAppEntity `json:"artifacts"`
	Traces    []*entity.TraceAppEntity    `json:"traces"`
}

// ArtifactResponse 工件在某个版本上的状态
type ArtifactResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Summary      string            `json:"summary"`
	Body         string            `json:"body"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
	Modification string            `json:"modification_type"`
	Version      string            `json:"version,omitempty"`
	VersionID    string            `json:"version_id"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// TraceResponse 追溯链接在某个版本上的状态
type TraceResponse struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	Target         string    `json:"target"`
	TraceType      string    `json:"trace_type"`
	ApprovalStatus string    `json:"approval_status"`
	Score          float64   `json:"score"`
	Explanation    string    `json:"explanation,omitempty"`
	Modification   string    `json:"modification_type"`
	Version        string    `json:"version,omitempty"`
	VersionID      string    `json:"version_id"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CommitErrorResponse 单个实体的提交错误
type CommitErrorResponse struct {
	EntityName  string    `json:"entity_name,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// CommitErrorsResponse 按类别分组的提交错误
type CommitErrorsResponse struct {
	Artifacts []*CommitErrorResponse `json:"artifacts"`
	Traces    []*CommitErrorResponse `json:"traces"`
}

// CommitResponse 提交结果
type CommitResponse struct {
	Version   *VersionResponse      `json:"version"`
	Artifacts []*ArtifactResponse   `json:"artifacts"`
	Traces    []*TraceResponse      `json:"traces"`
	Errors    *CommitErrorsResponse `json:"errors"`
}

// RemoveArtifactResponse 删除工件响应；工件在该版本已不存在时 Removed 为 false
type RemoveArtifactResponse struct {
	ID      string            `json:"id"`
	Removed bool              `json:"removed"`
	Row     *ArtifactResponse `json:"row,omitempty"`
}

// ToRemoveArtifactResponse row 为 nil 表示没有写入新行
func ToRemoveArtifactResponse(artifactID string, row *entity.ArtifactVersion) *RemoveArtifactResponse {
	resp := &RemoveArtifactResponse{ID: artifactID}
	if row != nil {
		resp.Removed = true
		resp.Row = ToArtifactResponse(row)
	}
	return resp
}

// ToArtifactResponse 转换工件版本行
func ToArtifactResponse(v *entity.ArtifactVersion) *ArtifactResponse {
	resp := &ArtifactResponse{
		ID:           v.ArtifactID,
		Summary:      v.Summary,
		Body:         v.Body,
		CustomFields: v.CustomFields,
		Modification: string(v.Modification),
		Version:      versionString(v.Version),
		VersionID:    v.ProjectVersionID,
		UpdatedAt:    v.UpdatedAt,
	}
	if v.Artifact != nil {
		resp.Name = v.Artifact.Name
		resp.Type = v.Artifact.TypeName()
	}
	return resp
}

// ToArtifactResponses 转换工件版本行列表
func ToArtifactResponses(rows []*entity.ArtifactVersion) []*ArtifactResponse {
	out := make([]*ArtifactResponse, 0, len(rows))
	for _, v := range rows {
		out = append(out, ToArtifactResponse(v))
	}
	return out
}

// ToTraceResponse 转换追溯链接版本行
func ToTraceResponse(v *entity.TraceLinkVersion) *TraceResponse {
	resp := &TraceResponse{
		ID:             v.TraceLinkID,
		TraceType:      string(v.TraceType),
		ApprovalStatus: string(v.ApprovalStatus),
		Score:          v.Score,
		Explanation:    v.Explanation,
		Modification:   string(v.Modification),
		Version:        versionString(v.Version),
		VersionID:      v.ProjectVersionID,
		UpdatedAt:      v.UpdatedAt,
	}
	if link := v.TraceLink; link != nil {
		if link.Source != nil {
			resp.Source = link.Source.Name
		}
		if link.Target != nil {
			resp.Target = link.Target.Name
		}
	}
	return resp
}

// ToTraceResponses 转换追溯链接版本行列表
func ToTraceResponses(rows []*entity.TraceLinkVersion) []*TraceResponse {
	out := make([]*TraceResponse, 0, len(rows))
	for _, v := range rows {
		out = append(out, ToTraceResponse(v))
	}
	return out
}

// ToCommitErrorsResponse 转换分组后的提交错误
func ToCommitErrorsResponse(errs *commit.Errors) *CommitErrorsResponse {
	resp := &CommitErrorsResponse{
		Artifacts: []*CommitErrorResponse{},
		Traces:    []*CommitErrorResponse{},
	}
	if errs == nil {
		return resp
	}
	for _, e := range errs.Artifacts {
		resp.Artifacts = append(resp.Artifacts, toCommitErrorResponse(e))
	}
	for _, e := range errs.Traces {
		resp.Traces = append(resp.Traces, toCommitErrorResponse(e))
	}
	return resp
}

func toCommitErrorResponse(e *entity.CommitError) *CommitErrorResponse {
	return &CommitErrorResponse{
		EntityName:  e.EntityName,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
}

// ToCommitResponse 转换提交结果
func ToCommitResponse(r *commit.Result) *CommitResponse {
	return &CommitResponse{
		Version:   ToVersionResponse(r.Version),
		Artifacts: ToArtifactResponses(r.Artifacts),
		Traces:    ToTraceResponses(r.Traces),
		Errors:    ToCommitErrorsResponse(r.Errors),
	}
}

func versionString(v *entity.ProjectVersion) string {
	if v == nil {
		return ""
	}
	return v.String()
}
