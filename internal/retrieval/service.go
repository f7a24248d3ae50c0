package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"samachar/backend/internal/chunkstore"
	"samachar/backend/internal/document"
	"samachar/backend/internal/embedding"
	"samachar/backend/internal/index"
)

// ErrInvalidQuery rejects empty or blank query text before it ever
// reaches the embedding backend.
var ErrInvalidQuery = errors.New("query text must not be empty")

// Result is one ranked context handed to the RAG/API boundary. Score is
// cosine similarity: higher means more relevant.
type Result struct {
	ChunkID  string                 `json:"chunk_id"`
	Content  string                 `json:"content"`
	Score    float32                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// VectorSearcher is the read-side slice of the vector index contract.
type VectorSearcher interface {
	Query(ctx context.Context, vector []float32, topK int) ([]index.Hit, error)
}

// ChunkStore looks up chunk content by id to materialize results.
type ChunkStore interface {
	GetChunk(ctx context.Context, chunkID string) (document.Chunk, error)
}

// Service is the read path: embed the query text, ask the index for the
// nearest chunks, join the hits against stored chunk content. It never
// writes to the index and is safe for concurrent use.
type Service struct {
	embedder embedding.Embedder
	index    VectorSearcher
	chunks   ChunkStore
	logger   *QueryLogger
}

func NewService(e embedding.Embedder, idx VectorSearcher, chunks ChunkStore, logger *QueryLogger) *Service {
	return &Service{embedder: e, index: idx, chunks: chunks, logger: logger}
}

// Query returns up to topK ranked contexts for the query text. A hit whose
// content is missing from the chunk store is logged and omitted rather
// than failing the whole query.
func (s *Service) Query(ctx context.Context, queryText string, topK int) ([]Result, error) {
	start := time.Now()

	if strings.TrimSpace(queryText) == "" {
		return nil, ErrInvalidQuery
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", index.ErrInvalidTopK, topK)
	}

	vectors, err := s.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", embedding.ErrBackend, len(vectors))
	}

	hits, err := s.index.Query(ctx, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		chunk, err := s.chunks.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, chunkstore.ErrNotFound) {
				// Index entry without backing content: degrade by omission.
				slog.WarnContext(ctx, "chunk content missing, omitting result", "chunk_id", hit.ChunkID)
				continue
			}
			return nil, fmt.Errorf("lookup chunk %q: %w", hit.ChunkID, err)
		}
		results = append(results, Result{
			ChunkID:  chunk.ID,
			Content:  chunk.Text,
			Score:    hit.Score,
			Metadata: chunk.Meta,
		})
	}

	if s.logger != nil {
		s.logger.Log(ctx, QueryLogEntry{
			Query:      queryText,
			TopK:       topK,
			NumResults: len(results),
			Duration:   time.Since(start),
		})
	}
	return results, nil
}
