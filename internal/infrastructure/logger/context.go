package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// OperationIDKey is the context key for the id of the running import or ledger operation
	OperationIDKey contextKey = "operation_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithOperationID tags the context and the logger with an operation id
func WithOperationID(ctx context.Context, logger *zap.Logger, operationID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, OperationIDKey, operationID)
	enriched := logger.With(zap.String("operation_id", operationID))
	return WithContext(ctx, enriched), enriched
}

// GetOperationID retrieves the operation id from context
func GetOperationID(ctx context.Context) string {
	if id, ok := ctx.Value(OperationIDKey).(string); ok {
		return id
	}
	return ""
}
