package artifact

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samachar/backend/internal/document"
)

func TestStore_RoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	chunks := []document.Chunk{
		{ID: "news:1::chunk_0", DocID: "news:1", ChunkIndex: 0, Text: "w1 w2"},
		{ID: "news:1::chunk_1", DocID: "news:1", ChunkIndex: 1, Text: "w3"},
	}
	vectors := [][]float32{{1, 0}, {0, 1}}

	require.NoError(t, store.Write("news:1", chunks, vectors))

	gotChunks, gotVectors, err := store.Read("news:1")
	require.NoError(t, err)
	assert.Equal(t, chunks, gotChunks)
	assert.Equal(t, vectors, gotVectors)
}

func TestStore_Overwrite(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write("news:1", []document.Chunk{{ID: "news:1::chunk_0", Text: "old"}}, [][]float32{{1}}))
	require.NoError(t, store.Write("news:1", []document.Chunk{{ID: "news:1::chunk_0", Text: "new"}}, [][]float32{{2}}))

	chunks, vectors, err := store.Read("news:1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "new", chunks[0].Text)
	assert.Equal(t, [][]float32{{2}}, vectors)
}

func TestStore_LengthMismatch(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	err = store.Write("news:1", []document.Chunk{{ID: "news:1::chunk_0"}}, nil)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestStore_ReadCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	t.Run("Mismatched Arrays On Disk", func(t *testing.T) {
		payload := `{"chunks":[{"id":"news:1::chunk_0"}],"vectors":[]}`
		require.NoError(t, os.WriteFile(store.Path("news:1"), []byte(payload), 0o600))

		_, _, err := store.Read("news:1")
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		require.NoError(t, os.WriteFile(store.Path("news:2"), []byte("{nope"), 0o600))

		_, _, err := store.Read("news:2")
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestStore_PathSanitizesDocID(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	assert.Contains(t, store.Path("news:42"), "news_42_vectors.json")
}
