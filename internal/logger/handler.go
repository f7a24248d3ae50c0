package logger

import (
	"context"
	"log/slog"

	"samachar/backend/internal/middleware"
)

// ContextHandler decorates records with the correlation id carried in the
// context, so every log line of a request or worker task is joinable.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := middleware.GetCorrelationID(ctx); id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	return h.Handler.Handle(ctx, r)
}
