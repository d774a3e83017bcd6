// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"tracehub-api/internal/application/commit"
	"tracehub-api/internal/interfaces/http/dto"
)

// ProjectHandler 项目与版本处理器
type ProjectHandler struct {
	versions *commit.VersionService
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(versions *commit.VersionService) *ProjectHandler {
	return &ProjectHandler{versions: versions}
}

// CreateProject 创建项目
// @Summary 创建项目
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body dto.CreateProjectRequest true "项目信息"
// @Success 201 {object} dto.Response[dto.ProjectResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	project, err := h.versions.CreateProject(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		writeError(c, err, "failed to create project")
		return
	}
	dto.Created(c, dto.ToProjectResponse(project))
}

// ListProjects 分页列出项目
// @Summary 项目列表
// @Tags Projects
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[dto.ProjectListResponse]
// @Router /v1/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	pageReq := dto.BindPage(c)

	result, err := h.versions.ListProjects(c.Request.Context(), pageReq.Pagination())
	if err != nil {
		writeError(c, err, "failed to list projects")
		return
	}

	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, dto.ToProjectListResponse(result.Items), meta)
}

// GetProject 获取项目
// @Summary 项目详情
// @Tags Projects
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.ProjectResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.versions.GetProject(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		writeError(c, err, "failed to get project")
		return
	}
	dto.Success(c, dto.ToProjectResponse(project))
}

// CreateVersion 在最新版本之上创建新版本
// @Summary 创建项目版本
// @Description 项目没有版本时创建 1.0.0，否则按 bump 递增最新版本
// @Tags Versions
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.CreateVersionRequest false "递增方式"
// @Success 201 {object} dto.Response[dto.VersionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/versions [post]
func (h *ProjectHandler) CreateVersion(c *gin.Context) {
	var req dto.CreateVersionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	kind, err := commit.ParseBumpKind(req.Bump)
	if err != nil {
		writeError(c, err, "failed to create version")
		return
	}

	version, err := h.versions.CreateVersion(c.Request.Context(), dto.BindProjectID(c), kind)
	if err != nil {
		writeError(c, err, "failed to create version")
		return
	}
	dto.Created(c, dto.ToVersionResponse(version))
}

// ListVersions 列出项目版本
// @Summary 项目版本列表
// @Tags Versions
// @Produce json
// @Param pid path string true "项目 ID"
// @Success 200 {object} dto.Response[dto.VersionListResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/versions [get]
func (h *ProjectHandler) ListVersions(c *gin.Context) {
	versions, err := h.versions.ListVersions(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		writeError(c, err, "failed to list versions")
		return
	}
	dto.Success(c, dto.ToVersionListResponse(versions))
}

// GetVersion 获取版本
// @Summary 项目版本详情
// @Tags Versions
// @Produce json
// @Param vid path string true "版本 ID"
// @Success 200 {object} dto.Response[dto.VersionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/versions/{vid} [get]
func (h *ProjectHandler) GetVersion(c *gin.Context) {
	version, err := h.versions.GetVersion(c.Request.Context(), dto.BindVersionID(c))
	if err != nil {
		writeError(c, err, "failed to get version")
		return
	}
	dto.Success(c, dto.ToVersionResponse(version))
}
