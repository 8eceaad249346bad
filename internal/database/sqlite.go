package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrClosed 在 Close 之后调用时返回
var ErrClosed = errors.New("database is closed")

// Mode 决定文件的打开方式
type Mode int

const (
	// ReadWrite 文件或父目录不存在时创建
	ReadWrite Mode = iota
	// ReadOnly 文件必须已存在
	ReadOnly
)

// String 是 SQLite URI 的 mode 参数
func (m Mode) String() string {
	if m == ReadOnly {
		return "ro"
	}
	return "rwc"
}

// DefaultBusyTimeout 等待写锁的时间
const DefaultBusyTimeout = 5 * time.Second

// DB 是单个 SQLite 文件上的 gorm 连接。SQLite 只允许单写，连接数固定为 1。
type DB struct {
	gdb    *gorm.DB
	raw    *sql.DB
	path   string
	logger *zap.Logger
	closed atomic.Bool
}

// Open 打开 path，SQL 日志以 debug 级别写入 logger
func Open(path string, mode Mode, logger *zap.Logger) (*DB, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "sqlite"), zap.String("path", path))

	switch mode {
	case ReadOnly:
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("database %s: %w", path, err)
		}
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?mode=%s&_pragma=busy_timeout(%d)", path, mode, DefaultBusyTimeout.Milliseconds())

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 NewGormLogger(logger, DefaultSlowQuery),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	raw, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	raw.SetMaxOpenConns(1)
	raw.SetMaxIdleConns(1)

	logger.Debug("opened", zap.Stringer("mode", mode))
	return &DB{gdb: gdb, raw: raw, path: path, logger: logger}, nil
}

func (d *DB) Path() string { return d.path }

// Session 返回绑定 ctx 的 gorm 会话
func (d *DB) Session(ctx context.Context) *gorm.DB {
	return d.gdb.WithContext(ctx)
}

func (d *DB) Ping(ctx context.Context) error {
	if d.closed.Load() {
		return ErrClosed
	}
	return d.raw.PingContext(ctx)
}

// Tx 在事务中执行 fn，fn 出错时回滚
func (d *DB) Tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if d.closed.Load() {
		return ErrClosed
	}
	return d.gdb.WithContext(ctx).Transaction(fn)
}

// Close 可重复调用
func (d *DB) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.raw.Close()
}
