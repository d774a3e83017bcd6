// Package postgres 提供 PostgreSQL 数据库访问层实现
package postgres

import (
	stderrors "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"tracehub-api/pkg/errors"
)

// SQLSTATE 完整性约束错误码
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsIntegrityViolation 判断是否为唯一键或外键冲突
func IsIntegrityViolation(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, gorm.ErrDuplicatedKey) || stderrors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation || pgErr.Code == pgForeignKeyViolation
	}
	// SQLite 驱动不做错误翻译，只能按消息识别
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "FOREIGN KEY constraint failed")
}

// translateWriteError 把完整性冲突转换为 ErrIntegrityViolation，其余错误原样返回
func translateWriteError(err error) error {
	if IsIntegrityViolation(err) {
		return errors.ErrIntegrityViolation.WithError(err)
	}
	return err
}

func isNotFound(err error) bool {
	return stderrors.Is(err, gorm.ErrRecordNotFound)
}
