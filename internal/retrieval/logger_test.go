package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samachar/backend/internal/middleware"
)

func TestQueryLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	l := NewQueryLogger(&buf)

	ctx := middleware.WithCorrelationID(context.Background(), "corr-123")
	l.Log(ctx, QueryLogEntry{
		Query:      "chunav parinam",
		TopK:       5,
		NumResults: 3,
		Duration:   42 * time.Millisecond,
	})

	var entry QueryLogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "chunav parinam", entry.Query)
	assert.Equal(t, 5, entry.TopK)
	assert.Equal(t, 3, entry.NumResults)
	assert.Equal(t, int64(42), entry.LatencyMs)
	assert.Equal(t, "corr-123", entry.CorrelationID)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestNewFileQueryLogger_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "query.log")

	l, err := NewFileQueryLogger(path)
	require.NoError(t, err)

	l.Log(context.Background(), QueryLogEntry{Query: "q", TopK: 1})
	assert.FileExists(t, path)
}
