package chunkstore

import (
	"context"
	"errors"
	"sync"

	"samachar/backend/internal/document"
)

// ErrNotFound is returned when a chunk id has no backing content. During
// result assembly the retriever treats this as a corrupt-artifact signal
// for that one item and degrades instead of failing the query.
var ErrNotFound = errors.New("chunk not found")

// Memory holds chunk content and metadata keyed by chunk id. The indexing
// pipeline writes it alongside the vector index; the retriever reads it to
// materialize results. Writes replace whole entries, so readers never see
// a half-updated chunk.
type Memory struct {
	mu     sync.RWMutex
	chunks map[string]document.Chunk
}

func NewMemory() *Memory {
	return &Memory{chunks: make(map[string]document.Chunk)}
}

func (m *Memory) PutChunks(ctx context.Context, chunks []document.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.chunks[c.ID] = c
	}
	return nil
}

func (m *Memory) GetChunk(ctx context.Context, chunkID string) (document.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return document.Chunk{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chunks[chunkID]
	if !ok {
		return document.Chunk{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) DeleteChunks(ctx context.Context, chunkIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range chunkIDs {
		delete(m.chunks, id)
	}
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

func (m *Memory) CountChunks(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return m.Len(), nil
}
