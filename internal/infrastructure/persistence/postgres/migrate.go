// Package postgres 提供 PostgreSQL 数据库访问层实现
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"tracehub-api/internal/domain/entity"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations 执行内嵌的 goose 迁移
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationStatus 打印迁移状态
func MigrationStatus(ctx context.Context, db *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	goose.SetBaseFS(migrationsFS)
	return goose.StatusContext(ctx, db, "migrations")
}

// Models 持久化的全部实体，顺序满足外键依赖
func Models() []any {
	return []any{
		&entity.Project{},
		&entity.ProjectVersion{},
		&entity.ArtifactType{},
		&entity.Artifact{},
		&entity.ArtifactVersion{},
		&entity.TraceLink{},
		&entity.TraceLinkVersion{},
		&entity.TraceMatrix{},
		&entity.CommitError{},
		&entity.Job{},
	}
}

// AutoMigrate 按实体定义建表（SQLite 测试与本地开发使用）
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}
