package logger

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultMaxSQLLength bounds logged statements. Batched inserts of
// validation results can otherwise put megabytes into a single entry.
const DefaultMaxSQLLength = 2048

// GormLogger routes gorm's logging through zap, tagged with the request,
// tenant and job of the context.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	logFullSQL    bool
	maxSQLLength  int
}

type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as
// a warning. Zero disables slow query reporting.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowThreshold = threshold }
}

// WithFullSQL logs the statement text on every traced query, not only on
// errors and slow queries.
func WithFullSQL(full bool) GormLoggerOption {
	return func(l *GormLogger) { l.logFullSQL = full }
}

// WithMaxSQLLength truncates logged statements to n bytes. n <= 0 keeps
// them whole.
func WithMaxSQLLength(n int) GormLoggerOption {
	return func(l *GormLogger) { l.maxSQLLength = n }
}

func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:        zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: 200 * time.Millisecond,
		maxSQLLength:  DefaultMaxSQLLength,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.sugar(ctx).Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.sugar(ctx).Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.sugar(ctx).Errorf(msg, data...)
	}
}

func (l *GormLogger) sugar(ctx context.Context) *zap.SugaredLogger {
	return l.logger.With(Fields(ctx)...).Sugar()
}

// Trace logs one executed statement. Missing records are not errors for
// the repositories, and cancelled statements belong to jobs or requests
// that were abandoned, so both are kept out of the error log.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	elapsed := time.Since(begin)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold
	sql, rows := fc()

	fields := append(Fields(ctx), zap.Duration("elapsed", elapsed), zap.Int64("rows", rows))
	if l.logFullSQL || err != nil || slow {
		fields = append(fields, zap.String("sql", l.clip(sql)))
	}

	switch {
	case err != nil && errors.Is(err, context.Canceled):
		if l.level >= gormlogger.Info {
			l.logger.Debug("sql cancelled", append(fields, zap.Error(err))...)
		}
	case err != nil:
		if l.level >= gormlogger.Error {
			l.logger.Error("sql error", append(fields, zap.Error(err))...)
		}
	case slow:
		if l.level >= gormlogger.Warn {
			l.logger.Warn("slow sql", append(fields, zap.Duration("threshold", l.slowThreshold))...)
		}
	case l.level >= gormlogger.Info:
		l.logger.Debug("sql query", fields...)
	}
}

func (l *GormLogger) clip(sql string) string {
	if l.maxSQLLength <= 0 || len(sql) <= l.maxSQLLength {
		return sql
	}
	return sql[:l.maxSQLLength] + "... (" + strconv.Itoa(len(sql)-l.maxSQLLength) + " bytes truncated)"
}

// MapGormLogLevel maps a configured level name onto gorm's levels. Debug
// maps to Info because gorm has nothing finer.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
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
