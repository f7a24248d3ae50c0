package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"samachar/backend/internal/artifact"
	"samachar/backend/internal/document"
	"samachar/backend/internal/embedding"
	"samachar/backend/internal/index"
	"samachar/backend/internal/text"
)

// ChunkWriter receives chunk content so the retriever can materialize
// results later. The in-memory chunk store and the Weaviate adapter both
// satisfy it.
type ChunkWriter interface {
	PutChunks(ctx context.Context, chunks []document.Chunk) error
}

// Config bounds a pipeline run. Artifacts is optional; when set, each
// document's chunks and vectors are also persisted as a parallel-array
// envelope on disk.
type Config struct {
	MaxTokens   int
	Concurrency int
	Artifacts   *artifact.Store
}

// DocumentError records a single document's failure inside a batch run.
type DocumentError struct {
	DocID string `json:"doc_id"`
	Err   error  `json:"-"`
}

func (e DocumentError) Error() string {
	return fmt.Sprintf("document %q: %v", e.DocID, e.Err)
}

// Report summarizes a batch indexing run.
type Report struct {
	ChunksWritten  int             `json:"chunks_written"`
	VectorsWritten int             `json:"vectors_written"`
	Errors         []DocumentError `json:"errors,omitempty"`
}

// Pipeline owns the write path into the vector index: chunk each document,
// embed its chunks in one batch, upsert the resulting records. Chunk ids
// and content are deterministic functions of the document and upsert
// replaces rather than appends, so re-running over unchanged documents
// converges on the same index state.
type Pipeline struct {
	embedder  embedding.Embedder
	index     index.Index
	chunks    ChunkWriter
	artifacts *artifact.Store

	maxTokens   int
	concurrency int
}

func New(e embedding.Embedder, idx index.Index, chunks ChunkWriter, cfg Config) (*Pipeline, error) {
	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("%w: max tokens %d", text.ErrInvalidConfiguration, cfg.MaxTokens)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Pipeline{
		embedder:    e,
		index:       idx,
		chunks:      chunks,
		artifacts:   cfg.Artifacts,
		maxTokens:   cfg.MaxTokens,
		concurrency: cfg.Concurrency,
	}, nil
}

// IndexDocuments runs the write path over a batch. One document embeds as
// one batch, so a backend failure poisons at most that document: the error
// lands in the report and the run continues. Cancellation is honored
// between documents; documents already indexed stay indexed.
func (p *Pipeline) IndexDocuments(ctx context.Context, docs []document.Document) (Report, error) {
	var report Report
	sem := make(chan struct{}, p.concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(doc document.Document) {
			defer wg.Done()
			defer func() { <-sem }()

			chunksWritten, vectorsWritten, err := p.indexDocument(ctx, doc)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.ErrorContext(ctx, "document indexing failed", "doc_id", doc.ID, "error", err)
				report.Errors = append(report.Errors, DocumentError{DocID: doc.ID, Err: err})
				return
			}
			report.ChunksWritten += chunksWritten
			report.VectorsWritten += vectorsWritten
		}(doc)
	}
	wg.Wait()

	return report, ctx.Err()
}

func (p *Pipeline) indexDocument(ctx context.Context, doc document.Document) (int, int, error) {
	chunks, err := text.ChunkDocument(doc, p.maxTokens)
	if err != nil {
		return 0, 0, fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		slog.DebugContext(ctx, "document produced no chunks, skipping", "doc_id", doc.ID)
		return 0, 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, 0, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, 0, fmt.Errorf("%w: %d chunks but %d vectors", embedding.ErrBackend, len(chunks), len(vectors))
	}

	if p.artifacts != nil {
		if err := p.artifacts.Write(doc.ID, chunks, vectors); err != nil {
			return 0, 0, fmt.Errorf("persist artifact: %w", err)
		}
	}

	// Content first, index second: a hit returned by the index must always
	// have backing content for the retriever to join against.
	if err := p.chunks.PutChunks(ctx, chunks); err != nil {
		return 0, 0, fmt.Errorf("store chunk content: %w", err)
	}

	// Record metadata carries the chunk text too, so backends that store
	// content next to the vector (Weaviate) get it in the same write.
	records := make([]index.Record, len(chunks))
	for i, c := range chunks {
		meta := make(map[string]interface{}, len(c.Meta)+1)
		for k, v := range c.Meta {
			meta[k] = v
		}
		meta["content"] = c.Text
		records[i] = index.Record{ChunkID: c.ID, Vector: vectors[i], Metadata: meta}
	}

	written, err := p.index.Upsert(ctx, records)
	if err != nil {
		return 0, 0, fmt.Errorf("upsert vectors: %w", err)
	}

	slog.InfoContext(ctx, "document indexed", "doc_id", doc.ID, "chunks", len(chunks))
	return len(chunks), written, nil
}
