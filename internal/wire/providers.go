// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"
	"os"

	"tracehub-api/internal/application/commit"
	"tracehub-api/internal/application/job"
	"tracehub-api/internal/config"
	"tracehub-api/internal/domain/repository"
	"tracehub-api/internal/domain/versioning"
	"tracehub-api/internal/infrastructure/messaging"
	"tracehub-api/internal/infrastructure/persistence/postgres"
	"tracehub-api/internal/infrastructure/persistence/redis"
	"tracehub-api/internal/interfaces/http/handler"
	"tracehub-api/pkg/logger"
)

// defaultStreamMaxLen 未配置时的流长度上限
const defaultStreamMaxLen = 100000

// Worker 提交任务消费进程的依赖容器
type Worker struct {
	Consumer *messaging.Consumer
	Runner   *job.Runner
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideSnapshotCache 提供快照缓存
func ProvideSnapshotCache(client *redis.Client, cfg *config.Config) *redis.SnapshotCache {
	return redis.NewSnapshotCache(client, cfg.Cache.SnapshotTTL)
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideCommitConsumer 提供提交任务流的消费者
func ProvideCommitConsumer(redisClient *redis.Client, cfg *config.Config) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	return messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamCommitJobs,
		Group:         messaging.CommitWorkerGroup(rs.ConsumerGroupPrefix),
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    rs.RetryBackoff.Initial,
			Max:        rs.RetryBackoff.Max,
			Multiplier: rs.RetryBackoff.Multiplier,
		},
	})
}

// ProvideArtifactEngine 提供工件版本化引擎
func ProvideArtifactEngine(artifacts repository.ArtifactRepository, types repository.ArtifactTypeRepository, versions repository.ArtifactVersionRepository, tx repository.Transactor) (*versioning.ArtifactEngine, error) {
	return versioning.NewArtifactEngine(versioning.ArtifactRepositories{
		Artifacts: artifacts,
		Types:     types,
		Versions:  versions,
	}, tx)
}

// ProvideTraceEngine 提供追溯链接版本化引擎
func ProvideTraceEngine(artifacts repository.ArtifactRepository, links repository.TraceLinkRepository, versions repository.TraceLinkVersionRepository, matrices repository.TraceMatrixRepository, tx repository.Transactor) (*versioning.TraceEngine, error) {
	return versioning.NewTraceEngine(versioning.TraceRepositories{
		Artifacts: artifacts,
		Links:     links,
		Versions:  versions,
		Matrices:  matrices,
	}, tx)
}

// ProvideCommitService 提供提交服务
func ProvideCommitService(
	cfg *config.Config,
	projects repository.ProjectRepository,
	versions repository.ProjectVersionRepository,
	commitErrors repository.CommitErrorRepository,
	artifacts *versioning.ArtifactEngine,
	traces *versioning.TraceEngine,
	tx repository.Transactor,
	cache *redis.SnapshotCache,
) *commit.Service {
	return commit.NewService(commit.Dependencies{
		Projects:     projects,
		Versions:     versions,
		CommitErrors: commitErrors,
		Artifacts:    artifacts,
		Traces:       traces,
		Tx:           tx,
		Cache:        cache,
		MaxBatchSize: cfg.Versioning.MaxBatchSize,
	})
}

// ProvideSnapshotService 提供快照查询服务
func ProvideSnapshotService(versions repository.ProjectVersionRepository, artifacts *versioning.ArtifactEngine, traces *versioning.TraceEngine, cache *redis.SnapshotCache) *commit.SnapshotService {
	return commit.NewSnapshotService(versions, artifacts, traces, cache)
}

// ProvideJobConfig 提供任务配置，未知的上传模式回退为 complete_set
func ProvideJobConfig(ctx context.Context, cfg *config.Config) job.Config {
	mode := versioning.ModeCompleteSet
	if cfg.Versioning.UploadMode != "" {
		parsed, err := versioning.ParseMode(cfg.Versioning.UploadMode)
		if err != nil {
			logger.Warn(ctx, "invalid upload mode, falling back to complete_set",
				"upload_mode", cfg.Versioning.UploadMode,
			)
		} else {
			mode = parsed
		}
	}
	return job.Config{
		UploadMode: mode,
		MaxRetries: cfg.Messaging.RedisStream.RetryLimit,
	}
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(pg *postgres.Client, redisClient *redis.Client, cfg *config.Config) *handler.HealthHandler {
	return handler.NewHealthHandler(pg, redisClient, cfg.App.Version)
}

// NewWorker 注册提交任务处理器
func NewWorker(consumer *messaging.Consumer, runner *job.Runner) *Worker {
	consumer.RegisterHandler(messaging.MessageTypeCommitJob, runner.HandleMessage)
	return &Worker{Consumer: consumer, Runner: runner}
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
