package services

import "context"

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	filenameKey  contextKey = "filename"
	folderKey    contextKey = "folder"
	requestIDKey contextKey = "request_id"
)

// WithSessionID annotates context with the console session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the console session identifier if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFilename annotates context with the video the current operation targets.
func WithFilename(ctx context.Context, filename string) context.Context {
	if filename == "" {
		return ctx
	}
	return context.WithValue(ctx, filenameKey, filename)
}

// FilenameFromContext returns the target filename if present.
func FilenameFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(filenameKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithFolder annotates context with the folder tag of the target video.
func WithFolder(ctx context.Context, folder string) context.Context {
	if folder == "" {
		return ctx
	}
	return context.WithValue(ctx, folderKey, folder)
}

// FolderFromContext returns the folder tag if present.
func FolderFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(folderKey)
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
