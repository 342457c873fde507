package common

import "context"

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID  contextKey = "request_id"
	ContextKeyFormFamily contextKey = "form_family"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithFormFamily adds a form-family label to the context
func WithFormFamily(ctx context.Context, family string) context.Context {
	return context.WithValue(ctx, ContextKeyFormFamily, family)
}

// FormFamilyFromContext extracts the form-family label from context
func FormFamilyFromContext(ctx context.Context) string {
	if family, ok := ctx.Value(ContextKeyFormFamily).(string); ok {
		return family
	}
	return ""
}
