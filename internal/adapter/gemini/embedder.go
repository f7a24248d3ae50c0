package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"samachar/backend/internal/embedding"
)

const defaultModel = "gemini-embedding-001"

// Embedder is the remote embedding backend. One instance maps to one
// model, so every vector it produces has the same dimensionality.
type Embedder struct {
	client *genai.Client
	model  string

	embedBatch func(ctx context.Context, texts []string) (*genai.BatchEmbedContentsResponse, error)
}

func NewEmbedder(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Embedder, error) {
	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	e := &Embedder{client: client, model: defaultModel}
	e.embedBatch = func(ctx context.Context, texts []string) (*genai.BatchEmbedContentsResponse, error) {
		em := client.EmbeddingModel(e.model)
		batch := em.NewBatch()
		for _, t := range texts {
			batch.AddContent(genai.Text(t))
		}
		return em.BatchEmbedContents(ctx, batch)
	}
	return e, nil
}

// Embed sends all texts as a single batch request. The whole batch either
// succeeds with one vector per text or fails; a response that does not
// line up with the request is a backend error, never padded out.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	slog.DebugContext(ctx, "embedding batch", "model", e.model, "texts", len(texts))

	res, err := e.embedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", embedding.ErrBackend, err)
	}
	if res == nil || len(res.Embeddings) != len(texts) {
		got := 0
		if res != nil {
			got = len(res.Embeddings)
		}
		return nil, fmt.Errorf("%w: requested %d embeddings, got %d", embedding.ErrBackend, len(texts), got)
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at position %d", embedding.ErrBackend, i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (e *Embedder) Close() error {
	return e.client.Close()
}
