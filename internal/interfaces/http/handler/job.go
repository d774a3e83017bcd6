package handler

import (
	"github.com/gin-gonic/gin"

	"tracehub-api/internal/application/job"
	"tracehub-api/internal/domain/entity"
	"tracehub-api/internal/interfaces/http/dto"
)

// JobHandler 任务处理器
type JobHandler struct {
	jobs *job.Service
}

// NewJobHandler 创建任务处理器
func NewJobHandler(jobs *job.Service) *JobHandler {
	return &JobHandler{
		jobs: jobs,
	}
}

// SubmitJob 投递异步提交任务
// @Summary 投递提交任务
// @Description upload 任务按完整集合处理，commit 任务只处理载荷中的实体
// @Tags Jobs
// @Accept json
// @Produce json
// @Param vid path string true "版本 ID"
// @Param body body dto.SubmitJobRequest true "任务载荷"
// @Success 202 {object} dto.Response[dto.JobResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/versions/{vid}/jobs [post]
func (h *JobHandler) SubmitJob(c *gin.Context) {
	var req dto.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	j, err := h.jobs.Submit(c.Request.Context(), dto.BindVersionID(c), entity.JobType(req.JobType), req.Payload())
	if err != nil {
		writeError(c, err, "failed to submit job")
		return
	}
	dto.Accepted(c, dto.ToJobResponse(j))
}

// ListVersionJobs 版本上的任务列表
// @Summary 版本任务列表
// @Tags Jobs
// @Produce json
// @Param vid path string true "版本 ID"
// @Success 200 {object} dto.Response[dto.JobListResponse]
// @Router /v1/versions/{vid}/jobs [get]
func (h *JobHandler) ListVersionJobs(c *gin.Context) {
	pageReq := dto.BindPage(c)

	result, err := h.jobs.ListByVersion(c.Request.Context(), dto.BindVersionID(c), pageReq.Pagination())
	if err != nil {
		writeError(c, err, "failed to list jobs")
		return
	}

	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, dto.ToJobListResponse(result.Items), meta)
}

// GetJob 获取任务详情
// @Summary 获取任务详情
// @Description 获取指定任务的状态、当前步骤与进度
// @Tags Jobs
// @Produce json
// @Param jid path string true "任务 ID"
// @Success 200 {object} dto.Response[dto.JobResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/jobs/{jid} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	j, err := h.jobs.Get(c.Request.Context(), dto.BindJobID(c))
	if err != nil {
		writeError(c, err, "failed to get job")
		return
	}
	dto.Success(c, dto.ToJobResponse(j))
}

// CancelJob 取消任务
// @Summary 取消任务
// @Tags Jobs
// @Produce json
// @Param jid path string true "任务 ID"
// @Success 200 {object} dto.Response[dto.CancelJobResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "任务已结束"
// @Router /v1/jobs/{jid} [delete]
func (h *JobHandler) CancelJob(c *gin.Context) {
	j, err := h.jobs.Cancel(c.Request.Context(), dto.BindJobID(c))
	if err != nil {
		writeError(c, err, "failed to cancel job")
		return
	}
	dto.Success(c, &dto.CancelJobResponse{
		ID:        j.ID,
		Cancelled: true,
	})
}
