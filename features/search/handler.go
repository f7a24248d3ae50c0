package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"samachar/backend/internal/index"
	"samachar/backend/internal/middleware"
	"samachar/backend/internal/retrieval"
)

// Retriever answers semantic queries against the chunk index.
type Retriever interface {
	Query(ctx context.Context, queryText string, topK int) ([]retrieval.Result, error)
}

type Handler struct {
	retriever   Retriever
	topKDefault int
}

func NewHandler(retriever Retriever, topKDefault int) *Handler {
	return &Handler{retriever: retriever, topKDefault: topKDefault}
}

func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	topK := req.TopK
	if topK == 0 {
		topK = h.topKDefault
	}

	results, err := h.retriever.Query(r.Context(), req.Query, topK)
	if err != nil {
		switch {
		case errors.Is(err, retrieval.ErrInvalidQuery):
			h.writeError(r.Context(), w, "VALIDATION_ERROR", "Query must not be empty", http.StatusBadRequest)
		case errors.Is(err, index.ErrInvalidTopK):
			h.writeError(r.Context(), w, "VALIDATION_ERROR", "top_k must be positive", http.StatusBadRequest)
		default:
			slog.ErrorContext(r.Context(), "query failed", "error", err)
			h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	if results == nil {
		results = []retrieval.Result{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"query":    req.Query,
		"contexts": results,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
