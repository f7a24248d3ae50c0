package index

import (
	"context"
	"errors"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from
	// the dimension the index was established with. Mismatches are never
	// truncated or padded.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidTopK is returned for non-positive top_k values.
	ErrInvalidTopK = errors.New("top_k must be positive")
)

// Record associates a chunk id with its embedding and the metadata needed
// to materialize it in a retrieval result.
type Record struct {
	ChunkID  string
	Vector   []float32
	Metadata map[string]interface{}
}

// Hit is one k-NN match. Score is cosine similarity: higher is more
// relevant. The metric is fixed per index instance.
type Hit struct {
	ChunkID string
	Score   float32
}

// Index stores vector records keyed by chunk id and answers k-NN queries.
// Upsert is idempotent: re-upserting a chunk id replaces vector and
// metadata atomically, never duplicating entries. Query results are
// ordered best-first with ties broken by ascending chunk id, so results
// are reproducible. The remote vector store backend implements the same
// contract; nothing above this interface knows which one is bound.
type Index interface {
	Upsert(ctx context.Context, records []Record) (int, error)
	Query(ctx context.Context, vector []float32, topK int) ([]Hit, error)
	Delete(ctx context.Context, chunkIDs []string) error
}
