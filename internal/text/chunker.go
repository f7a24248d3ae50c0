package text

import (
	"errors"
	"strings"

	"samachar/backend/internal/document"
)

// ErrInvalidConfiguration is returned for chunking parameters that can
// never produce a valid result (e.g. a non-positive window size).
var ErrInvalidConfiguration = errors.New("invalid chunking configuration")

// Chunk splits text on word boundaries into contiguous, non-overlapping
// windows of at most maxTokens words each. The last window may be shorter.
// It is deterministic: the same (text, maxTokens) always yields the same
// sequence, which is what makes re-indexing idempotent downstream.
//
// Empty or whitespace-only text yields no chunks. maxTokens <= 0 is a
// configuration error, not a degenerate split.
func Chunk(text string, maxTokens int) ([]string, error) {
	if maxTokens <= 0 {
		return nil, ErrInvalidConfiguration
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	chunks := make([]string, 0, (len(words)+maxTokens-1)/maxTokens)
	for start := 0; start < len(words); start += maxTokens {
		end := start + maxTokens
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks, nil
}

// ChunkDocument chunks doc's text and stamps each window with its parent
// document id, position, the derived chunk id, and the document metadata
// merged with {chunk_index, doc_id}. The input document is not mutated;
// each chunk gets its own metadata map.
func ChunkDocument(doc document.Document, maxTokens int) ([]document.Chunk, error) {
	pieces, err := Chunk(doc.Text, maxTokens)
	if err != nil {
		return nil, err
	}

	chunks := make([]document.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		meta := make(map[string]interface{}, len(doc.Meta)+2)
		for k, v := range doc.Meta {
			meta[k] = v
		}
		meta["chunk_index"] = i
		meta["doc_id"] = doc.ID

		chunks = append(chunks, document.Chunk{
			ID:         document.ChunkID(doc.ID, i),
			DocID:      doc.ID,
			ChunkIndex: i,
			Text:       piece,
			Meta:       meta,
		})
	}
	return chunks, nil
}
