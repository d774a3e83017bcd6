package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// errNoTransaction 需要事务的操作在事务外被调用
var errNoTransaction = errors.New("operation requires an open transaction")

type txKey struct{}

// TxManager 实现 repository.Transactor
// 外层开启数据库事务，嵌套调用由 gorm 转为 SAVEPOINT / ROLLBACK TO
type TxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(client *Client) *TxManager {
	return &TxManager{db: client.db}
}

// WithTransaction fn 返回错误时回滚本层；ctx 已携带事务时本层是保存点
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return getDB(ctx, m.db).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// inTransaction ctx 是否携带进行中的事务
func inTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

// getDB 仓储统一入口：优先使用 ctx 中的事务句柄
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
