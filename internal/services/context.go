package services

import "context"

type contextKey string

const (
	uploadIDKey  contextKey = "upload_id"
	sourceKey    contextKey = "source"
	requestIDKey contextKey = "request_id"
)

// WithUploadID annotates context with the history ledger upload identifier.
func WithUploadID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, uploadIDKey, id)
}

// UploadIDFromContext extracts the upload identifier if present.
func UploadIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(uploadIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithSource annotates context with the local file being uploaded.
func WithSource(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceKey, path)
}

// SourceFromContext returns the source path if present.
func SourceFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(sourceKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
