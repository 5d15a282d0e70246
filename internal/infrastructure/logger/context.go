package logger

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// AccountIDKey is the context key for the storefront account being worked on
	AccountIDKey contextKey = "account_id"
	// JobKeyKey is the context key for the bulk sync job key
	JobKeyKey contextKey = "job_key"
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

// WithRequestID adds request ID to context and returns enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithAccountID adds the account ID to context and returns enriched logger
func WithAccountID(ctx context.Context, logger *zap.Logger, accountID uuid.UUID) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, AccountIDKey, accountID)
	enriched := logger.With(zap.String("account_id", accountID.String()))
	return WithContext(ctx, enriched), enriched
}

// WithJobKey adds the bulk sync job key to context and returns enriched logger
func WithJobKey(ctx context.Context, logger *zap.Logger, jobKey string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, JobKeyKey, jobKey)
	enriched := logger.With(zap.String("job_key", jobKey))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetAccountID retrieves the account ID from context, uuid.Nil if absent
func GetAccountID(ctx context.Context) uuid.UUID {
	if accountID, ok := ctx.Value(AccountIDKey).(uuid.UUID); ok {
		return accountID
	}
	return uuid.Nil
}

// GetJobKey retrieves the job key from context
func GetJobKey(ctx context.Context) string {
	if jobKey, ok := ctx.Value(JobKeyKey).(string); ok {
		return jobKey
	}
	return ""
}

// GetTraceID extracts the trace ID from the context's span.
// Returns an empty string if no valid span exists.
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// WithTraceContext adds trace_id and span_id to the logger from the context's span.
// If no valid span exists, returns the original logger unchanged.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}
