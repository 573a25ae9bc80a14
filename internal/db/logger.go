package db

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/config"
)

const slowThreshold = 200 * time.Millisecond

// Logger sends gorm output to zap. Queries are traced only when detailed
// errors are enabled; the statement text, which gorm renders with bound
// values, is attached only when sensitive data logging is enabled.
type Logger struct {
	log       *zap.SugaredLogger
	level     logger.LogLevel
	sensitive bool
}

func NewLogger(l *zap.SugaredLogger, opts config.DatabaseOptions) *Logger {
	level := logger.Warn
	if opts.EnableDetailedErrors {
		level = logger.Info
	}
	return &Logger{
		log:       l.Named("gorm"),
		level:     level,
		sensitive: opts.EnableSensitiveDataLogging,
	}
}

func (l *Logger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *Logger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		l.log.Infof(msg, args...)
	}
}

func (l *Logger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		l.log.Warnf(msg, args...)
	}
}

func (l *Logger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		l.log.Errorf(msg, args...)
	}
}

func (l *Logger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	fields := []interface{}{"elapsed", elapsed}
	if l.sensitive {
		sql, rows := fc()
		fields = append(fields, "sql", sql, "rows", rows)
	}

	switch {
	case err != nil && err != gorm.ErrRecordNotFound && l.level >= logger.Error:
		l.log.Errorw("query failed", append(fields, "error", err)...)
	case elapsed > slowThreshold && l.level >= logger.Warn:
		l.log.Warnw("slow query", fields...)
	case l.level >= logger.Info:
		l.log.Debugw("query", fields...)
	}
}
