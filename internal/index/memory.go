package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

type memoryRecord struct {
	vector   []float32
	norm     float64
	metadata map[string]interface{}
}

// Memory is a brute-force in-memory Index using cosine similarity.
// The dimension is established by the first successful upsert; every later
// record and query vector must match it. Writes replace whole records
// under the lock, so a concurrent query sees either the old record or the
// new one, never a torn mix.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]memoryRecord
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]memoryRecord)}
}

func (m *Memory) Upsert(ctx context.Context, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dim := m.dimension
	if dim == 0 {
		dim = len(records[0].Vector)
		if dim == 0 {
			return 0, fmt.Errorf("%w: empty vector for chunk %q", ErrDimensionMismatch, records[0].ChunkID)
		}
	}

	// Validate the whole batch before touching the map so a bad record
	// cannot leave a partial write behind.
	for _, r := range records {
		if len(r.Vector) != dim {
			return 0, fmt.Errorf("%w: chunk %q has dimension %d, index has %d",
				ErrDimensionMismatch, r.ChunkID, len(r.Vector), dim)
		}
	}

	m.dimension = dim
	for _, r := range records {
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)

		meta := make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}

		m.records[r.ChunkID] = memoryRecord{
			vector:   vec,
			norm:     l2norm(vec),
			metadata: meta,
		}
	}
	return len(records), nil
}

func (m *Memory) Query(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.records) == 0 {
		return []Hit{}, nil
	}
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("%w: query vector has dimension %d, index has %d",
			ErrDimensionMismatch, len(vector), m.dimension)
	}

	queryNorm := l2norm(vector)
	hits := make([]Hit, 0, len(m.records))
	for id, rec := range m.records {
		hits = append(hits, Hit{ChunkID: id, Score: cosine(vector, queryNorm, rec.vector, rec.norm)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *Memory) Delete(ctx context.Context, chunkIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Unknown ids are a no-op, not an error.
	for _, id := range chunkIDs {
		delete(m.records, id)
	}
	return nil
}

// Metadata returns a copy of the stored metadata for a chunk id.
func (m *Memory) Metadata(chunkID string) (map[string]interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[chunkID]
	if !ok {
		return nil, false
	}
	meta := make(map[string]interface{}, len(rec.metadata))
	for k, v := range rec.metadata {
		meta[k] = v
	}
	return meta, true
}

// Len reports the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func l2norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, normA float64, b []float32, normB float64) float32 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (normA * normB))
}
