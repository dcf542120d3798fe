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
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// SourceIDKey is the context key for the document source being processed
	SourceIDKey contextKey = "source_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if
// not found.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds request ID to context and returns the enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithSourceID adds the document source ID to context and returns the
// enriched logger, so every log line emitted while processing an upload
// names the source that sent it.
func WithSourceID(ctx context.Context, logger *zap.Logger, sourceID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, SourceIDKey, sourceID)
	enriched := logger.With(zap.String("source_id", sourceID))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetSourceID retrieves the document source ID from context
func GetSourceID(ctx context.Context) string {
	if sourceID, ok := ctx.Value(SourceIDKey).(string); ok {
		return sourceID
	}
	return ""
}
