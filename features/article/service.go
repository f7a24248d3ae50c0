package article

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"samachar/backend/internal/config"
	"samachar/backend/internal/document"
	"samachar/backend/internal/middleware"
	"samachar/backend/internal/pipeline"
	"samachar/backend/internal/worker"
)

const reindexBatchSize = 100

type Repository interface {
	Save(ctx context.Context, a *Article) error
	List(ctx context.Context, limit, offset int) ([]Article, error)
	Get(ctx context.Context, id int64) (*Article, error)
	Count(ctx context.Context) (int, error)
}

type Indexer interface {
	IndexDocuments(ctx context.Context, docs []document.Document) (pipeline.Report, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo    Repository
	indexer Indexer
	pub     EventPublisher
}

func NewService(repo Repository, indexer Indexer, pub EventPublisher) *Service {
	return &Service{repo: repo, indexer: indexer, pub: pub}
}

// Create stores the article, then queues it for indexing. A nil publisher
// means no queue is configured and the article is indexed inline.
func (s *Service) Create(ctx context.Context, a *Article) error {
	if err := s.repo.Save(ctx, a); err != nil {
		return fmt.Errorf("save article: %w", err)
	}

	doc := a.ToDocument()
	if s.pub == nil {
		report, err := s.indexer.IndexDocuments(ctx, []document.Document{doc})
		if err != nil {
			return fmt.Errorf("index article: %w", err)
		}
		if len(report.Errors) > 0 {
			return fmt.Errorf("index article: %w", report.Errors[0])
		}
		return nil
	}

	payload := worker.IndexTaskPayload{
		DocID:         doc.ID,
		Text:          doc.Text,
		Meta:          doc.Meta,
		CorrelationID: middleware.GetCorrelationID(ctx),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := s.pub.Publish(config.TopicIndexTask, body); err != nil {
		return fmt.Errorf("publish index task: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Article, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Get(ctx context.Context, id int64) (*Article, error) {
	return s.repo.Get(ctx, id)
}

// Reindex pushes every stored article back through the indexing pipeline.
// Failed documents are reported, not fatal; the pass continues so one bad
// row cannot block a full rebuild.
func (s *Service) Reindex(ctx context.Context) (pipeline.Report, error) {
	var total pipeline.Report
	offset := 0
	for {
		articles, err := s.repo.List(ctx, reindexBatchSize, offset)
		if err != nil {
			return total, fmt.Errorf("list articles: %w", err)
		}
		if len(articles) == 0 {
			break
		}

		docs := make([]document.Document, len(articles))
		for i := range articles {
			docs[i] = articles[i].ToDocument()
		}

		report, err := s.indexer.IndexDocuments(ctx, docs)
		total.ChunksWritten += report.ChunksWritten
		total.VectorsWritten += report.VectorsWritten
		total.Errors = append(total.Errors, report.Errors...)
		if err != nil {
			return total, err
		}

		slog.InfoContext(ctx, "reindex batch complete",
			"articles", len(articles), "chunks", report.ChunksWritten, "failed", len(report.Errors))
		offset += len(articles)
	}
	return total, nil
}
