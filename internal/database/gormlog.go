package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQuery 超过该耗时的语句以 warn 记录
const DefaultSlowQuery = 500 * time.Millisecond

// GormLogger 把 gorm 的日志转给 zap。
// 普通语句记 debug，慢语句记 warn，失败语句记 error（RecordNotFound 除外）。
type GormLogger struct {
	logger *zap.Logger
	slow   time.Duration
	level  gormlogger.LogLevel
}

var _ gormlogger.Interface = (*GormLogger)(nil)

func NewGormLogger(logger *zap.Logger, slow time.Duration) *GormLogger {
	return &GormLogger{logger: logger.WithOptions(zap.AddCallerSkip(3)), slow: slow, level: gormlogger.Info}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		stmt, rows := fc()
		l.logger.Error("sql failed", zap.String("sql", stmt), zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed), zap.Error(err))
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		stmt, rows := fc()
		l.logger.Warn("slow sql", zap.String("sql", stmt), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed))
	case l.level >= gormlogger.Info && l.logger.Core().Enabled(zap.DebugLevel):
		stmt, rows := fc()
		l.logger.Debug("sql", zap.String("sql", truncateSQL(stmt)), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed))
	}
}

// 批量插入的语句可能很长，debug 日志只保留开头
func truncateSQL(stmt string) string {
	const limit = 256
	if len(stmt) <= limit {
		return stmt
	}
	return stmt[:limit] + "..."
}
