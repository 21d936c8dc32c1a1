package logging

import (
	"context"
	"log/slog"
	"strings"
)

// sessionHandler stamps every record with the console session identifier.
type sessionHandler struct {
	base      slog.Handler
	sessionID string
}

// WithSession returns a logger whose records carry session_id. An empty id
// returns logger unchanged.
func WithSession(logger *slog.Logger, sessionID string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return logger
	}
	return slog.New(&sessionHandler{base: logger.Handler(), sessionID: sessionID})
}

func (h *sessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *sessionHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(slog.String(FieldSessionID, h.sessionID))
	return h.base.Handle(ctx, record)
}

func (h *sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sessionHandler{base: h.base.WithAttrs(attrs), sessionID: h.sessionID}
}

func (h *sessionHandler) WithGroup(name string) slog.Handler {
	return &sessionHandler{base: h.base.WithGroup(name), sessionID: h.sessionID}
}
