package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// Database log defaults
const (
	DefaultSlowQueryThreshold = 200 * time.Millisecond
	// DefaultMaxSQLLength bounds the statement text attached to a log entry;
	// bulk upserts of a whole catalog otherwise produce megabyte lines.
	DefaultMaxSQLLength = 2048
)

// GormLogger routes gorm statements into zap, tagged with the request,
// account and bulk job found in the context
type GormLogger struct {
	logger         *zap.Logger
	level          gormlogger.LogLevel
	slowThreshold  time.Duration
	maxSQLLength   int
	ignoreNotFound bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which statements are logged at warn.
// Zero keeps the default.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		if threshold > 0 {
			l.slowThreshold = threshold
		}
	}
}

// WithMaxSQLLength truncates logged statements; zero or less logs them whole
func WithMaxSQLLength(n int) GormLoggerOption {
	return func(l *GormLogger) {
		l.maxSQLLength = n
	}
}

// WithIgnoreRecordNotFoundError controls whether gorm.ErrRecordNotFound is logged.
// Lookups of unknown products are routine, so it is ignored by default.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) {
		l.ignoreNotFound = ignore
	}
}

// NewGormLogger creates a gorm logger writing to a "db" child of base
func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		logger:         base.Named("db"),
		level:          level,
		slowThreshold:  DefaultSlowQueryThreshold,
		maxSQLLength:   DefaultMaxSQLLength,
		ignoreNotFound: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, data...), l.contextFields(ctx)...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, data...), l.contextFields(ctx)...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, data...), l.contextFields(ctx)...)
	}
}

// Trace logs a finished statement: failures at error, slow statements at warn
// and everything else at debug when the level is Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !(l.ignoreNotFound && errors.Is(err, gormlogger.ErrRecordNotFound))
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	switch {
	case failed && l.level >= gormlogger.Error:
		l.logger.Error("Query failed", append(l.statementFields(ctx, elapsed, fc), zap.Error(err))...)
	case slow && l.level >= gormlogger.Warn:
		l.logger.Warn("Slow query", append(l.statementFields(ctx, elapsed, fc),
			zap.Duration("threshold", l.slowThreshold))...)
	case !failed && l.level >= gormlogger.Info:
		l.logger.Debug("Query", l.statementFields(ctx, elapsed, fc)...)
	}
}

func (l *GormLogger) statementFields(ctx context.Context, elapsed time.Duration, fc func() (string, int64)) []zap.Field {
	sql, rows := fc()
	if l.maxSQLLength > 0 && len(sql) > l.maxSQLLength {
		sql = sql[:l.maxSQLLength] + "...(truncated)"
	}
	return append(l.contextFields(ctx),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
}

func (l *GormLogger) contextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetAccountID(ctx); id != uuid.Nil {
		fields = append(fields, zap.String("account_id", id.String()))
	}
	if key := GetJobKey(ctx); key != "" {
		fields = append(fields, zap.String("job_key", key))
	}
	return fields
}

// MapGormLogLevel maps the application log level to a gorm level. Statements
// are only traced when the application logs at debug or info.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
