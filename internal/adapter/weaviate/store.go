package weaviate

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"samachar/backend/internal/chunkstore"
	"samachar/backend/internal/document"
	"samachar/backend/internal/index"
)

const className = "ArticleChunk"

// metadata keys flattened into schema properties. Anything else in the
// chunk metadata is dropped at the remote boundary.
var metaProperties = []string{"site", "category", "url", "title", "lang"}

// Store is the remote vector index backend. It implements both the index
// contract (vectors live in Weaviate, scored by cosine similarity) and
// the chunk-content lookup (content is stored as an object property), so
// a single Weaviate instance backs the whole write and read path.
//
// Object ids are UUIDv5 of the chunk id, so re-indexing the same chunk
// overwrites the same object instead of accumulating duplicates.
type Store struct {
	client *weaviate.Client

	mu        sync.Mutex
	dimension int
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Upsert(ctx context.Context, records []index.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := s.checkDimensions(records); err != nil {
		return 0, err
	}

	objects := make([]*models.Object, len(records))
	for i, r := range records {
		objects[i] = &models.Object{
			Class:      className,
			ID:         strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(r.ChunkID)).String()),
			Vector:     models.C11yVector(r.Vector),
			Properties: properties(r),
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("batch upsert: %w", err)
	}

	written := 0
	for _, item := range resp {
		if item.Result != nil && item.Result.Errors != nil && len(item.Result.Errors.Error) > 0 {
			return written, fmt.Errorf("batch upsert: %s", item.Result.Errors.Error[0].Message)
		}
		written++
	}
	return written, nil
}

func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]index.Hit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", index.ErrInvalidTopK, topK)
	}

	s.mu.Lock()
	dim := s.dimension
	s.mu.Unlock()
	if dim != 0 && len(vector) != dim {
		return nil, fmt.Errorf("%w: query vector has dimension %d, index has %d",
			index.ErrDimensionMismatch, len(vector), dim)
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	fields := []graphql.Field{
		{Name: "chunkId"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(className).
		WithNearVector(nearVector).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("near vector query: %w", err)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("near vector query: graphql error: %v", res.Errors[0].Message)
	}

	hits := make([]index.Hit, 0, topK)
	for _, props := range classObjects(res.Data) {
		chunkID, _ := props["chunkId"].(string)
		if chunkID == "" {
			continue
		}

		var score float32
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				// certainty = (1 + cosine) / 2; report plain cosine so both
				// backends speak the same score contract.
				score = float32(2*certainty - 1)
			}
		}
		hits = append(hits, index.Hit{ChunkID: chunkID, Score: score})
	}

	// Weaviate orders by distance already; re-sort to pin the tie-break.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	return hits, nil
}

func (s *Store) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(className).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"chunkId"}).
			WithOperator(filters.ContainsAny).
			WithValueString(chunkIDs...)).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("batch delete: %w", err)
	}
	return nil
}

// GetChunk materializes chunk content from object properties, serving the
// retriever's content lookup without a separate side store.
func (s *Store) GetChunk(ctx context.Context, chunkID string) (document.Chunk, error) {
	fields := []graphql.Field{
		{Name: "chunkId"}, {Name: "docId"}, {Name: "chunkIndex"}, {Name: "content"},
		{Name: "site"}, {Name: "category"}, {Name: "url"}, {Name: "title"}, {Name: "lang"},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(className).
		WithWhere(filters.Where().
			WithPath([]string{"chunkId"}).
			WithOperator(filters.Equal).
			WithValueString(chunkID)).
		WithLimit(1).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return document.Chunk{}, fmt.Errorf("get chunk: %w", err)
	}
	if len(res.Errors) > 0 {
		return document.Chunk{}, fmt.Errorf("get chunk: graphql error: %v", res.Errors[0].Message)
	}

	objects := classObjects(res.Data)
	if len(objects) == 0 {
		return document.Chunk{}, chunkstore.ErrNotFound
	}
	return chunkFromProperties(objects[0]), nil
}

// PutChunks is a no-op: chunk content rides along with the vectors in
// Upsert, there is nothing separate to write.
func (s *Store) PutChunks(ctx context.Context, chunks []document.Chunk) error {
	return nil
}

func (s *Store) CountChunks(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("count chunks: graphql error: %v", res.Errors[0].Message)
	}

	agg, ok := res.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	items, ok := agg[className].([]interface{})
	if !ok || len(items) == 0 {
		return 0, nil
	}
	first, ok := items[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := first["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	count, _ := meta["count"].(float64)
	return int(count), nil
}

func (s *Store) checkDimensions(records []index.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	if dim == 0 {
		dim = len(records[0].Vector)
		if dim == 0 {
			return fmt.Errorf("%w: empty vector for chunk %q", index.ErrDimensionMismatch, records[0].ChunkID)
		}
	}
	for _, r := range records {
		if len(r.Vector) != dim {
			return fmt.Errorf("%w: chunk %q has dimension %d, index has %d",
				index.ErrDimensionMismatch, r.ChunkID, len(r.Vector), dim)
		}
	}
	s.dimension = dim
	return nil
}

func properties(r index.Record) map[string]interface{} {
	props := map[string]interface{}{
		"chunkId": r.ChunkID,
	}
	if content, ok := r.Metadata["content"].(string); ok {
		props["content"] = content
	}
	if docID, ok := r.Metadata["doc_id"].(string); ok {
		props["docId"] = docID
	}
	if idx, ok := r.Metadata["chunk_index"].(int); ok {
		props["chunkIndex"] = idx
	}
	for _, key := range metaProperties {
		if v, ok := r.Metadata[key].(string); ok {
			props[key] = v
		}
	}
	return props
}

func chunkFromProperties(props map[string]interface{}) document.Chunk {
	c := document.Chunk{Meta: make(map[string]interface{})}
	if v, ok := props["chunkId"].(string); ok {
		c.ID = v
	}
	if v, ok := props["docId"].(string); ok {
		c.DocID = v
		c.Meta["doc_id"] = v
	}
	if v, ok := props["chunkIndex"].(float64); ok {
		c.ChunkIndex = int(v)
		c.Meta["chunk_index"] = int(v)
	}
	if v, ok := props["content"].(string); ok {
		c.Text = v
	}
	for _, key := range metaProperties {
		if v, ok := props[key].(string); ok && v != "" {
			c.Meta[key] = v
		}
	}
	return c
}

func classObjects(data map[string]models.JSONObject) []map[string]interface{} {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := get[className].([]interface{})
	if !ok {
		return nil
	}
	objects := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if props, ok := item.(map[string]interface{}); ok {
			objects = append(objects, props)
		}
	}
	return objects
}
