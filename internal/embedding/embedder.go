package embedding

import (
	"context"
	"errors"
)

// ErrBackend marks failures of the embedding backend itself: unreachable
// service, or a payload that does not line up with the request. Callers
// decide whether to retry or drop the batch; the core never silently
// substitutes zero vectors.
var ErrBackend = errors.New("embedding backend error")

// Embedder maps texts to fixed-dimension vectors, one per input, in input
// order. A given instance always produces vectors of the same length.
// An empty input returns an empty output. Batches either succeed for every
// text or fail as a whole; there is no per-item partial result.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
