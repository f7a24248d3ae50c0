package document

import "fmt"

// Document is a normalized unit handed over by the ingestion boundary
// (one crawled page or article). The core treats it as read-only; its ID
// is content-derived upstream and never re-derived here.
type Document struct {
	ID   string                 `json:"id"`
	Text string                 `json:"text"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// Chunk is a bounded slice of a document's text, the atomic unit of
// embedding and retrieval. Its ID is deterministic so that re-indexing
// the same document converges on the same set of chunk ids.
type Chunk struct {
	ID         string                 `json:"id"`
	DocID      string                 `json:"doc_id"`
	ChunkIndex int                    `json:"chunk_index"`
	Text       string                 `json:"text"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// ChunkID derives the globally unique chunk identifier from its parent
// document id and position.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s::chunk_%d", docID, index)
}
