package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// StoreLogger routes GORM output for the local store through zap. Statements
// issued under an operation context carry its operation_id.
type StoreLogger struct {
	base  *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

// NewStoreLogger builds the store logger from the configured level name
// (silent, error, warn, info) and slow statement threshold. A zero threshold
// disables slow statement warnings.
func NewStoreLogger(base *zap.Logger, level string, slow time.Duration) *StoreLogger {
	return &StoreLogger{
		base:  base.Named("store"),
		level: StoreLogLevel(level),
		slow:  slow,
	}
}

// StoreLogLevel maps a configured level name to a GORM log level
func StoreLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// LogMode implements gormlogger.Interface
func (l *StoreLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

// Info implements gormlogger.Interface
func (l *StoreLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

// Warn implements gormlogger.Interface
func (l *StoreLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

// Error implements gormlogger.Interface
func (l *StoreLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *StoreLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	l.scoped(ctx).Log(lvl, fmt.Sprintf(msg, data...))
}

// Trace implements gormlogger.Interface. Statements go to debug, slow ones to
// warn and failures to error. Missing rows and canceled imports are expected.
func (l *StoreLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	stmt, rows := fc()
	log := l.scoped(ctx)
	fields := []zap.Field{
		zap.String("statement", stmt),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}

	switch {
	case errors.Is(err, gormlogger.ErrRecordNotFound):
	case errors.Is(err, context.Canceled):
		if l.level >= gormlogger.Error {
			log.Info("statement canceled", fields...)
		}
	case err != nil:
		if l.level >= gormlogger.Error {
			log.Error("statement failed", append(fields, zap.Error(err))...)
		}
	case l.slow > 0 && elapsed > l.slow:
		if l.level >= gormlogger.Warn {
			log.Warn("slow statement", append(fields, zap.Duration("threshold", l.slow))...)
		}
	case l.level >= gormlogger.Info:
		log.Debug("statement", fields...)
	}
}

func (l *StoreLogger) scoped(ctx context.Context) *zap.Logger {
	if id := GetOperationID(ctx); id != "" {
		return l.base.With(zap.String("operation_id", id))
	}
	return l.base
}
