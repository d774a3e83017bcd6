//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"tracehub-api/internal/application/commit"
	"tracehub-api/internal/application/job"
	"tracehub-api/internal/config"
	"tracehub-api/internal/domain/repository"
	"tracehub-api/internal/infrastructure/messaging"
	"tracehub-api/internal/infrastructure/persistence/postgres"
	"tracehub-api/internal/interfaces/http/handler"
	"tracehub-api/internal/interfaces/http/router"
)

// InitializeApp 初始化 API 服务（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		VersioningSet,
		ServiceSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化提交任务消费进程
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		VersioningSet,
		ProvideCommitService,
		ProvideJobConfig,
		job.NewRunner,
		ProvideCommitConsumer,
		NewWorker,
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewProjectRepository,
	postgres.NewProjectVersionRepository,
	postgres.NewArtifactRepository,
	postgres.NewArtifactTypeRepository,
	postgres.NewArtifactVersionRepository,
	postgres.NewTraceLinkRepository,
	postgres.NewTraceLinkVersionRepository,
	postgres.NewTraceMatrixRepository,
	postgres.NewCommitErrorRepository,
	postgres.NewJobRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	// 接口绑定
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.ProjectRepository), new(*postgres.ProjectRepository)),
	wire.Bind(new(repository.ProjectVersionRepository), new(*postgres.ProjectVersionRepository)),
	wire.Bind(new(repository.ArtifactRepository), new(*postgres.ArtifactRepository)),
	wire.Bind(new(repository.ArtifactTypeRepository), new(*postgres.ArtifactTypeRepository)),
	wire.Bind(new(repository.ArtifactVersionRepository), new(*postgres.ArtifactVersionRepository)),
	wire.Bind(new(repository.TraceLinkRepository), new(*postgres.TraceLinkRepository)),
	wire.Bind(new(repository.TraceLinkVersionRepository), new(*postgres.TraceLinkVersionRepository)),
	wire.Bind(new(repository.TraceMatrixRepository), new(*postgres.TraceMatrixRepository)),
	wire.Bind(new(repository.CommitErrorRepository), new(*postgres.CommitErrorRepository)),
	wire.Bind(new(repository.JobRepository), new(*postgres.JobRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideSnapshotCache,
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	wire.Bind(new(job.Publisher), new(*messaging.Producer)),
)

// VersioningSet 版本化引擎提供者集合
var VersioningSet = wire.NewSet(
	ProvideArtifactEngine,
	ProvideTraceEngine,
)

// ServiceSet 应用服务提供者集合
var ServiceSet = wire.NewSet(
	commit.NewVersionService,
	ProvideCommitService,
	ProvideSnapshotService,
	ProvideJobConfig,
	job.NewService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewProjectHandler,
	handler.NewCommitHandler,
	handler.NewJobHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
