package worker

// IndexTaskPayload is the wire format for documents queued on the
// index.task topic. Meta travels with the document and ends up stamped
// onto every chunk.
type IndexTaskPayload struct {
	DocID string                 `json:"doc_id"`
	Text  string                 `json:"text"`
	Meta  map[string]interface{} `json:"meta,omitempty"`

	CorrelationID string `json:"correlation_id,omitempty"`
}
