package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"agentdesk/internal/store"
	"agentdesk/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 交易库只有引擎一个写入方，连接数保持很小即可。
const maxConns = 2

// SqliteStore 保存 agent 交易（agent_trades）与平仓记录（position_closes）。
// 每次 Begin 开启一个事务，TradeLog 在其上组织一批账本变更。
type SqliteStore struct {
	db *gorm.DB
}

// NewSqliteStore 打开（必要时创建）交易库并迁移表结构，WAL 模式。
func NewSqliteStore(path string) (*SqliteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("trades db path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create trades db dir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open trades db %s: %w", path, err)
	}
	if err := db.AutoMigrate(&model.TradeModel{}, &model.PositionCloseModel{}); err != nil {
		return nil, fmt.Errorf("migrate trades db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxConns)
		sqlDB.SetMaxIdleConns(maxConns)
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Begin(ctx context.Context) (store.UnitOfWork, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin trades tx: %w", tx.Error)
	}
	return &txUnit{tx: tx}, nil
}

func (s *SqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// txUnit 把交易与平仓仓储绑定在同一个 gorm 事务上。
type txUnit struct {
	tx *gorm.DB
}

func (u *txUnit) Trades() store.TradeRepository { return NewTradeRepo(u.tx) }
func (u *txUnit) Closes() store.CloseRepository { return NewCloseRepo(u.tx) }
func (u *txUnit) Commit() error                 { return u.tx.Commit().Error }
func (u *txUnit) Rollback() error               { return u.tx.Rollback().Error }
