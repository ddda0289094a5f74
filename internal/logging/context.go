package logging

import (
	"context"
	"log/slog"

	"deckhand/internal/services"
)

// Standardized attribute keys shared across components. Keeping them in one
// place avoids drift in dashboards and log queries.
const (
	FieldComponent     = "component"
	FieldJobID         = "job_id"
	FieldNotebookID    = "notebook_id"
	FieldCommand       = "command"
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	FieldImpact        = "impact"
	FieldAlert         = "alert"
)

// ContextFields extracts standard attributes from ctx. Only values that are
// actually present come back, so callers can splat the result into a log call.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	attrs := make([]Attr, 0, 3)
	if jobID, ok := services.JobIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldJobID, jobID))
	}
	if command, ok := services.CommandFromContext(ctx); ok {
		attrs = append(attrs, String(FieldCommand, command))
	}
	if requestID, ok := services.RequestIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldCorrelationID, requestID))
	}
	return attrs
}

// WithContext returns a logger pre-populated with the standard attributes
// found in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
