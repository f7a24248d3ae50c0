package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"samachar/backend/internal/document"
	"samachar/backend/internal/middleware"
	"samachar/backend/internal/pipeline"
)

// Indexer runs the chunk-embed-store pipeline for a batch of documents.
type Indexer interface {
	IndexDocuments(ctx context.Context, docs []document.Document) (pipeline.Report, error)
}

// TaskPublisher is satisfied by *nsq.Producer.
type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

type IndexConsumer struct {
	indexer Indexer
}

func NewIndexConsumer(indexer Indexer) *IndexConsumer {
	return &IndexConsumer{indexer: indexer}
}

func (h *IndexConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload IndexTaskPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}
	if payload.DocID == "" {
		slog.Error("poison pill: missing doc_id")
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}

	indexCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	doc := document.Document{
		ID:   payload.DocID,
		Text: payload.Text,
		Meta: payload.Meta,
	}

	report, err := h.indexer.IndexDocuments(indexCtx, []document.Document{doc})
	if err != nil {
		slog.ErrorContext(ctx, "indexing failed", "error", err, "doc_id", payload.DocID)
		return err // Retry
	}
	if len(report.Errors) > 0 {
		slog.ErrorContext(ctx, "document rejected by pipeline", "error", report.Errors[0].Err, "doc_id", payload.DocID)
		return report.Errors[0] // Retry
	}

	slog.InfoContext(ctx, "document indexed", "doc_id", payload.DocID, "chunks", report.ChunksWritten)
	return nil
}
