package job

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"tracehub-api/internal/application/commit"
	"tracehub-api/internal/domain/entity"
	"tracehub-api/internal/domain/repository"
	"tracehub-api/internal/infrastructure/messaging"
	"tracehub-api/pkg/errors"
	"tracehub-api/pkg/logger"
	"tracehub-api/pkg/metrics"
)

// 任务步骤名称
const (
	StepPrepare    = "prepare"
	StepApply      = "apply"
	StepInvalidate = "invalidate"
)

// run 一次任务执行期间在步骤之间传递的状态
type run struct {
	job     *entity.Job
	version *entity.ProjectVersion
	request *commit.Request
	result  *commit.Result
}

// step 任务中的一个步骤，progress 为进入该步骤时记录的进度
// cancellable 为 false 的步骤不再检查取消：apply 开始后提交已经落库
type step struct {
	name        string
	progress    int
	cancellable bool
	exec        func(ctx context.Context, r *run) error
}

// Runner 按步骤执行提交任务
type Runner struct {
	jobs    repository.JobRepository
	commits *commit.Service
	cfg     Config
}

// NewRunner 创建任务执行器
func NewRunner(jobs repository.JobRepository, commits *commit.Service, cfg Config) *Runner {
	return &Runner{jobs: jobs, commits: commits, cfg: cfg}
}

// steps 两种任务类型共用同一组步骤，区别只在 prepare 选择的模式
func (r *Runner) steps() []step {
	return []step{
		{name: StepPrepare, progress: 5, cancellable: true, exec: r.prepare},
		{name: StepApply, progress: 20, cancellable: true, exec: r.apply},
		{name: StepInvalidate, progress: 90, exec: r.invalidate},
	}
}

func (r *Runner) prepare(ctx context.Context, st *run) error {
	payload := st.job.Payload
	if payload == nil {
		payload = &entity.CommitPayload{}
	}
	st.request = &commit.Request{
		Artifacts: payload.Artifacts,
		Traces:    payload.Traces,
		Mode:      r.cfg.ModeFor(st.job.JobType),
	}
	if err := r.commits.Validate(st.request); err != nil {
		return err
	}

	pv, err := r.commits.LoadVersion(ctx, st.job.ProjectVersionID)
	if err != nil {
		return err
	}
	st.version = pv
	return nil
}

func (r *Runner) apply(ctx context.Context, st *run) error {
	result, err := r.commits.Apply(ctx, st.version, st.request)
	if err != nil {
		return err
	}
	st.result = result
	return nil
}

func (r *Runner) invalidate(ctx context.Context, st *run) error {
	r.commits.Invalidate(ctx, st.version.ProjectID)
	return nil
}

// HandleMessage 提交任务流的消息处理器
func (r *Runner) HandleMessage(ctx context.Context, msg *messaging.Message) error {
	var payload messaging.CommitJobMessage
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return err
	}

	return r.Run(msg.Restore(ctx), payload.JobID)
}

// Run 执行任务
// 已取消或已完成的任务直接跳过；失败的任务在重试次数内重新执行
// 参数类错误标记任务失败后返回 nil，其余错误返回给调用方以便消息重投
func (r *Runner) Run(ctx context.Context, jobID string) error {
	ctx, span := tracer.Start(ctx, "job.Runner.Run")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", jobID))
	ctx = logger.WithContext(ctx, logger.JobIDKey, jobID)

	job, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return errors.ErrJobNotFound.WithDetail(jobID)
	}

	switch {
	case job.Status == entity.JobStatusFailed && job.CanRetry(r.cfg.MaxRetries):
		job.Retry()
	case job.Status.IsTerminal():
		logger.Info(ctx, "skip finished job", "status", string(job.Status))
		return nil
	}

	ctx = logger.WithContext(ctx, logger.ProjectIDKey, job.ProjectID)
	ctx = logger.WithContext(ctx, logger.VersionIDKey, job.ProjectVersionID)

	job.Start()
	if err := r.jobs.Update(ctx, job); err != nil {
		return err
	}

	st := &run{job: job}
	for _, s := range r.steps() {
		if s.cancellable {
			cancelled, err := r.cancelled(ctx, jobID)
			if err != nil {
				return err
			}
			if cancelled {
				logger.Info(ctx, "job cancelled", "step", s.name)
				metrics.JobsTotal.WithLabelValues(string(job.JobType), string(entity.JobStatusCancelled)).Inc()
				return nil
			}
		}

		job.EnterStep(s.name, s.progress)
		if err := r.jobs.UpdateProgress(ctx, jobID, s.name, s.progress); err != nil {
			return err
		}

		start := time.Now()
		err := s.exec(ctx, st)
		metrics.JobStepDuration.WithLabelValues(string(job.JobType), s.name).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			return r.fail(ctx, job, s.name, err)
		}
	}

	job.Complete(&entity.JobResult{
		ArtifactRows:   len(st.result.Artifacts),
		TraceRows:      len(st.result.Traces),
		ArtifactErrors: len(st.result.Errors.Artifacts),
		TraceErrors:    len(st.result.Errors.Traces),
	})
	if err := r.jobs.Update(ctx, job); err != nil {
		return err
	}

	metrics.JobsTotal.WithLabelValues(string(job.JobType), string(entity.JobStatusCompleted)).Inc()
	logger.Info(ctx, "job completed",
		"artifact_rows", job.Result.ArtifactRows,
		"trace_rows", job.Result.TraceRows,
		"errors", job.Result.ArtifactErrors+job.Result.TraceErrors,
	)
	return nil
}

func (r *Runner) cancelled(ctx context.Context, jobID string) (bool, error) {
	current, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		return false, err
	}
	return current != nil && current.Status == entity.JobStatusCancelled, nil
}

func (r *Runner) fail(ctx context.Context, job *entity.Job, stepName string, err error) error {
	logger.Error(ctx, "job step failed", err, "step", stepName)
	metrics.JobsTotal.WithLabelValues(string(job.JobType), string(entity.JobStatusFailed)).Inc()

	job.Fail(err.Error())
	if updateErr := r.jobs.Update(ctx, job); updateErr != nil {
		logger.Error(ctx, "failed to mark job failed", updateErr)
		return err
	}

	if errors.IsAppError(err) && errors.AsAppError(err).HTTPStatus < 500 {
		return nil
	}
	return err
}
