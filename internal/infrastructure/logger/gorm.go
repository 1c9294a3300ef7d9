package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// SQLConfig controls statement logging for the persistence layer
type SQLConfig struct {
	// Level is silent, error, warn or info
	Level         string
	SlowThreshold time.Duration
	// LogParams renders bound values into logged statements. Off, the
	// statements keep their placeholders and customer phones and names
	// stay out of the logs.
	LogParams bool
}

// SQLLogger writes gorm statements through zap with the correlation
// fields of the calling update or request
type SQLLogger struct {
	logger    *zap.Logger
	level     gormlogger.LogLevel
	slow      time.Duration
	logParams bool
}

var _ gormlogger.Interface = (*SQLLogger)(nil)

// NewSQLLogger builds a gorm logger. A zero SlowThreshold turns slow
// statement warnings off.
func NewSQLLogger(zapLogger *zap.Logger, cfg SQLConfig) *SQLLogger {
	return &SQLLogger{
		logger:    zapLogger.Named("sql"),
		level:     MapGormLogLevel(cfg.Level),
		slow:      cfg.SlowThreshold,
		logParams: cfg.LogParams,
	}
}

// LogMode implements gormlogger.Interface
func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *SQLLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		WithLogger(ctx, l.logger).Info(fmt.Sprintf(msg, data...))
	}
}

// Warn implements gormlogger.Interface
func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		WithLogger(ctx, l.logger).Warn(fmt.Sprintf(msg, data...))
	}
}

// Error implements gormlogger.Interface
func (l *SQLLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		WithLogger(ctx, l.logger).Error(fmt.Sprintf(msg, data...))
	}
}

// ParamsFilter drops bound values unless LogParams is set. gorm calls it
// before rendering the statement handed to Trace.
func (l *SQLLogger) ParamsFilter(_ context.Context, sql string, params ...any) (string, []any) {
	if !l.logParams {
		return sql, nil
	}
	return sql, params
}

// Trace logs one statement. Missing rows are the repositories' concern and
// are not logged. An UPDATE that matched nothing is how a lost version
// race shows up, so it is reported at info.
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	op := statementOp(sql)

	log := WithLogger(ctx, l.logger)
	fields := []zap.Field{
		zap.String("op", op),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}

	switch {
	case err != nil && errors.Is(err, gormlogger.ErrRecordNotFound):
		return
	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		if l.level >= gormlogger.Warn {
			log.Warn("SQL statement interrupted", append(fields, zap.Error(err))...)
		}
	case err != nil:
		if l.level >= gormlogger.Error {
			log.Error("SQL statement failed", append(fields, zap.Error(err))...)
		}
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		log.Warn("Slow SQL statement", append(fields, zap.Duration("threshold", l.slow))...)
	case op == "update" && rows == 0 && l.level >= gormlogger.Warn:
		log.Info("SQL update matched no rows", fields...)
	case l.level >= gormlogger.Info:
		log.Debug("SQL statement", fields...)
	}
}

// statementOp is the lower-cased leading keyword of sql
func statementOp(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// MapGormLogLevel maps a config level name to the gorm level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
