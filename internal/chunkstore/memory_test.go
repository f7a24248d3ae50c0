package chunkstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samachar/backend/internal/document"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("Put And Get", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.PutChunks(ctx, []document.Chunk{
			{ID: "a::chunk_0", DocID: "a", ChunkIndex: 0, Text: "w1 w2"},
			{ID: "a::chunk_1", DocID: "a", ChunkIndex: 1, Text: "w3 w4"},
		}))

		c, err := m.GetChunk(ctx, "a::chunk_1")
		require.NoError(t, err)
		assert.Equal(t, "w3 w4", c.Text)
		assert.Equal(t, 2, m.Len())
	})

	t.Run("Missing Chunk", func(t *testing.T) {
		m := NewMemory()
		_, err := m.GetChunk(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Put Overwrites", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.PutChunks(ctx, []document.Chunk{{ID: "a::chunk_0", Text: "old"}}))
		require.NoError(t, m.PutChunks(ctx, []document.Chunk{{ID: "a::chunk_0", Text: "new"}}))

		c, err := m.GetChunk(ctx, "a::chunk_0")
		require.NoError(t, err)
		assert.Equal(t, "new", c.Text)
		assert.Equal(t, 1, m.Len())
	})

	t.Run("Delete Is NoOp For Unknown IDs", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.PutChunks(ctx, []document.Chunk{{ID: "a::chunk_0"}}))
		require.NoError(t, m.DeleteChunks(ctx, []string{"a::chunk_0", "unknown"}))
		assert.Equal(t, 0, m.Len())
	})
}
