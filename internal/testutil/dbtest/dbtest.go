// Package dbtest 为仓储与服务测试提供基于 SQLite 的 GORM 连接
package dbtest

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"tracehub-api/internal/infrastructure/persistence/postgres"
)

// Open 打开 SQLite 文件数据库
func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// NewClient 在临时目录中创建已建表的数据库客户端
func NewClient(t *testing.T) *postgres.Client {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "tracehub_test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := postgres.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return postgres.NewClientFromDB(db)
}
