package handler

import (
	"github.com/gin-gonic/gin"

	"tracehub-api/internal/application/commit"
	"tracehub-api/internal/domain/versioning"
	"tracehub-api/internal/interfaces/http/dto"
)

// CommitHandler 版本内容处理器：同步提交与快照查询
type CommitHandler struct {
	commits   *commit.Service
	snapshots *commit.SnapshotService
}

// NewCommitHandler 创建提交处理器
func NewCommitHandler(commits *commit.Service, snapshots *commit.SnapshotService) *CommitHandler {
	return &CommitHandler{commits: commits, snapshots: snapshots}
}

// Commit 同步提交
// @Summary 提交工件与追溯链接
// @Description 先处理工件再处理追溯链接；单个实体的错误按类别返回，不影响其余实体
// @Tags Commits
// @Accept json
// @Produce json
// @Param vid path string true "版本 ID"
// @Param body body dto.CommitRequest true "期望状态"
// @Success 200 {object} dto.Response[dto.CommitResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/versions/{vid}/commit [post]
func (h *CommitHandler) Commit(c *gin.Context) {
	var req dto.CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	mode := versioning.Mode(req.Mode)
	if mode == "" {
		mode = versioning.ModeDelta
	}

	result, err := h.commits.Commit(c.Request.Context(), dto.BindVersionID(c), &commit.Request{
		Artifacts: req.Artifacts,
		Traces:    req.Traces,
		Mode:      mode,
	})
	if err != nil {
		writeError(c, err, "failed to commit")
		return
	}
	dto.Success(c, dto.ToCommitResponse(result))
}

// ListArtifacts 版本上生效的工件
// @Summary 版本工件快照
// @Tags Snapshots
// @Produce json
// @Param vid path string true "版本 ID"
// @Success 200 {object} dto.Response[[]dto.ArtifactResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/versions/{vid}/artifacts [get]
func (h *CommitHandler) ListArtifacts(c *gin.Context) {
	rows, err := h.snapshots.Artifacts(c.Request.Context(), dto.BindVersionID(c))
	if err != nil {
		writeError(c, err, "failed to load artifacts")
		return
	}
	dto.Success(c, dto.ToArtifactResponses(rows))
}

// RemoveArtifact 在版本上删除工件
// @Summary 删除工件
// @Description 写入 REMOVED 行，之前版本的快照不受影响；重复删除不写新行
// @Tags Commits
// @Produce json
// @Param vid path string true "版本 ID"
// @Param aid path string true "工件 ID"
// @Success 200 {object} dto.Response[dto.RemoveArtifactResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/versions/{vid}/artifacts/{aid} [delete]
func (h *CommitHandler) RemoveArtifact(c *gin.Context) {
	artifactID := dto.BindArtifactID(c)
	row, err := h.commits.RemoveArtifact(c.Request.Context(), dto.BindVersionID(c), artifactID)
	if err != nil {
		writeError(c, err, "failed to remove artifact")
		return
	}
	dto.Success(c, dto.ToRemoveArtifactResponse(artifactID, row))
}

// ListTraces 版本上生效的追溯链接
// @Summary 版本追溯链接快照
// @Tags Snapshots
// @Produce json
// @Param vid path string true "版本 ID"
// @Success 200 {object} dto.Response[[]dto.TraceResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/versions/{vid}/traces [get]
func (h *CommitHandler) ListTraces(c *gin.Context) {
	rows, err := h.snapshots.Traces(c.Request.Context(), dto.BindVersionID(c))
	if err != nil {
		writeError(c, err, "failed to load traces")
		return
	}
	dto.Success(c, dto.ToTraceResponses(rows))
}

// ListErrors 版本上记录的提交错误
// @Summary 提交错误
// @Tags Commits
// @Produce json
// @Param vid path string true "版本 ID"
// @Success 200 {object} dto.Response[dto.CommitErrorsResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/versions/{vid}/errors [get]
func (h *CommitHandler) ListErrors(c *gin.Context) {
	errs, err := h.commits.Errors(c.Request.Context(), dto.BindVersionID(c))
	if err != nil {
		writeError(c, err, "failed to list commit errors")
		return
	}
	dto.Success(c, dto.ToCommitErrorsResponse(errs))
}

// ArtifactHistory 工件的全部版本行
// @Summary 工件历史
// @Tags Snapshots
// @Produce json
// @Param aid path string true "工件 ID"
// @Success 200 {object} dto.Response[[]dto.ArtifactResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/artifacts/{aid}/history [get]
func (h *CommitHandler) ArtifactHistory(c *gin.Context) {
	rows, err := h.snapshots.History(c.Request.Context(), dto.BindArtifactID(c))
	if err != nil {
		writeError(c, err, "failed to load artifact history")
		return
	}
	dto.Success(c, dto.ToArtifactResponses(rows))
}
