package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"samachar/backend/internal/document"
)

// ErrCorrupt marks an artifact whose chunks and vectors arrays are not
// parallel, or that cannot be decoded at all.
var ErrCorrupt = errors.New("corrupt artifact")

// Envelope is the persisted per-document artifact: a chunks array and a
// vectors array joined strictly by position. This exact layout is the
// contract between the batch indexing stage and any consumer reading the
// materialized output.
type Envelope struct {
	Chunks  []document.Chunk `json:"chunks"`
	Vectors [][]float32      `json:"vectors"`
}

// Store persists one artifact file per source document under a directory.
// File names are derived from the document id, so re-running a batch
// overwrites rather than accumulates.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Write(docID string, chunks []document.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors for document %q",
			ErrCorrupt, len(chunks), len(vectors), docID)
	}

	data, err := json.MarshalIndent(Envelope{Chunks: chunks, Vectors: vectors}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact for %q: %w", docID, err)
	}

	path := s.Path(docID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write artifact for %q: %w", docID, err)
	}
	// Rename so a crash mid-write never leaves a truncated artifact behind.
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize artifact for %q: %w", docID, err)
	}
	return nil
}

func (s *Store) Read(docID string) ([]document.Chunk, [][]float32, error) {
	data, err := os.ReadFile(s.Path(docID))
	if err != nil {
		return nil, nil, fmt.Errorf("read artifact for %q: %w", docID, err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(env.Chunks) != len(env.Vectors) {
		return nil, nil, fmt.Errorf("%w: %d chunks but %d vectors for document %q",
			ErrCorrupt, len(env.Chunks), len(env.Vectors), docID)
	}
	return env.Chunks, env.Vectors, nil
}

// Path returns the artifact file for a document id. The id is flattened
// into a safe file name (e.g. "news:42" -> "news_42_vectors.json").
func (s *Store) Path(docID string) string {
	return filepath.Join(s.dir, sanitize(docID)+"_vectors.json")
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}
