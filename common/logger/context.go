package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// The HTTP layer seeds RequestID, services add WorkspaceID/Namespace, and the
// reconciler narrows to TableName while it works through a batch.
type LogFields struct {
	WorkspaceID *int64  // Workspace snowflake ID
	Namespace   *string // Relational namespace (e.g. "ws_1234")
	TableName   *string // Table currently being rebuilt or extracted
	RequestID   *string // X-Request-Id of the inbound HTTP request
	Component   string  // Component name (OTel semantic convention style, e.g., "sandbox.reconcile")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.WorkspaceID != nil {
		result.WorkspaceID = new.WorkspaceID
	}
	if new.Namespace != nil {
		result.Namespace = new.Namespace
	}
	if new.TableName != nil {
		result.TableName = new.TableName
	}
	if new.RequestID != nil {
		result.RequestID = new.RequestID
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{Namespace: logger.Ptr(ns)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// User SQL can be arbitrarily long, so log it through this.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
