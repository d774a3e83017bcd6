package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *Handlers) {
	// 项目管理
	projects := v1.Group("/projects")
	{
		projects.GET("", h.Project.ListProjects)
		projects.POST("", h.Project.CreateProject)
		projects.GET("/:pid", h.Project.GetProject)

		// 项目下的版本
		projects.GET("/:pid/versions", h.Project.ListVersions)
		projects.POST("/:pid/versions", h.Project.CreateVersion)
	}

	// 版本内容
	versions := v1.Group("/versions")
	{
		versions.GET("/:vid", h.Project.GetVersion)
		versions.POST("/:vid/commit", h.Commit.Commit)
		versions.GET("/:vid/artifacts", h.Commit.ListArtifacts)
		versions.DELETE("/:vid/artifacts/:aid", h.Commit.RemoveArtifact)
		versions.GET("/:vid/traces", h.Commit.ListTraces)
		versions.GET("/:vid/errors", h.Commit.ListErrors)

		// 异步任务
		versions.POST("/:vid/jobs", h.Job.SubmitJob)
		versions.GET("/:vid/jobs", h.Job.ListVersionJobs)
	}

	// 工件历史
	artifacts := v1.Group("/artifacts")
	{
		artifacts.GET("/:aid/history", h.Commit.ArtifactHistory)
	}

	// 任务管理
	jobs := v1.Group("/jobs")
	{
		jobs.GET("/:jid", h.Job.GetJob)
		jobs.DELETE("/:jid", h.Job.CancelJob)
	}
}
