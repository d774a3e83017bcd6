package dto

import (
	"time"

	"tracehub-api/internal/domain/entity"
)

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description" binding:"max=5000"`
}

// ProjectResponse 项目响应
type ProjectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectListResponse 项目列表响应
type ProjectListResponse struct {
	Projects []*ProjectResponse `json:"projects"`
}

// ToProjectResponse 将领域实体转换为响应 DTO
func ToProjectResponse(p *entity.Project) *ProjectResponse {
	if p == nil {
		return nil
	}
	return &ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToProjectListResponse 将领域实体列表转换为响应 DTO
func ToProjectListResponse(projects []*entity.Project) *ProjectListResponse {
	resp := &ProjectListResponse{
		Projects: make([]*ProjectResponse, 0, len(projects)),
	}
	for _, p := range projects {
		resp.Projects = append(resp.Projects, ToProjectResponse(p))
	}
	return resp
}

// CreateVersionRequest 创建版本请求，bump 取 major、minor 或 revision
type CreateVersionRequest struct {
	Bump string `json:"bump" binding:"omitempty,oneof=major minor revision"`
}

// VersionResponse 项目版本响应
type VersionResponse struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Version   string    `json:"version"`
	Major     int       `json:"major"`
	Minor     int       `json:"minor"`
	Patch     int       `json:"patch"`
	CreatedAt time.Time `json:"created_at"`
}

// VersionListResponse 版本列表响应
type VersionListResponse struct {
	Versions []*VersionResponse `json:"versions"`
}

// ToVersionResponse 将项目版本转换为响应 DTO
func ToVersionResponse(v *entity.ProjectVersion) *VersionResponse {
	if v == nil {
		return nil
	}
	return &VersionResponse{
		ID:        v.ID,
		ProjectID: v.ProjectID,
		Version:   v.String(),
		Major:     v.Major,
		Minor:     v.Minor,
		Patch:     v.Patch,
		CreatedAt: v.CreatedAt,
	}
}

// ToVersionListResponse 转换版本列表
func ToVersionListResponse(versions []*entity.ProjectVersion) *VersionListResponse {
	resp := &VersionListResponse{
		Versions: make([]*VersionResponse, 0, len(versions)),
	}
	for _, v := range versions {
		resp.Versions = append(resp.Versions, ToVersionResponse(v))
	}
	return resp
}
