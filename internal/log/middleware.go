package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// NewContext returns a copy of ctx carrying logger for FromContext.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	// Return default logger if not found
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogHTTPStart logs the start of an HTTP request
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.InfoContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs the completion of an HTTP request
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogTransactionChanged logs a successful create, update or delete.
func (sl *StructuredLogger) LogTransactionChanged(ctx context.Context, op, id, date, category, amount string) {
	fields := NewFields().
		WithTransaction(id, date, category, amount).
		WithOperation(op).
		WithComponent(ComponentLedger)

	sl.logger.InfoContext(ctx, "Transaction "+op+"d", fields.ToSlice()...)
}

// LogFilterFallback records a filter that could not be resolved and was
// widened or emptied by the fallback policy.
func (sl *StructuredLogger) LogFilterFallback(ctx context.Context, mode, policy string, cause error) {
	fields := NewFields().
		WithOperation(OpQuery).
		WithComponent(ComponentLedger).
		WithError(cause)
	fields[FieldFilterMode] = mode
	fields[FieldFallback] = policy

	sl.logger.WarnContext(ctx, "Filter could not be resolved, applying fallback", fields.ToSlice()...)
}

// LogQuery records how a filter request resolved.
func (sl *StructuredLogger) LogQuery(ctx context.Context, mode, window string, results int) {
	fields := NewFields().
		WithFilter(mode, window, results).
		WithOperation(OpQuery).
		WithComponent(ComponentLedger)

	sl.logger.DebugContext(ctx, "Ledger query", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
