package weaviate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	adapter "samachar/backend/internal/adapter/weaviate"
	"samachar/backend/internal/chunkstore"
	"samachar/backend/internal/index"
)

func mockWeaviate(t *testing.T, handler http.HandlerFunc) (*weaviate.Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	cfg := weaviate.Config{Host: ts.Listener.Addr().String(), Scheme: "http"}
	client, err := weaviate.NewClient(cfg)
	require.NoError(t, err)
	return client, ts
}

func meta(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"version": "1.19.0"}`))
}

func TestStore_Upsert(t *testing.T) {
	var firstID, secondID string
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			meta(w)
			return
		}
		assert.Equal(t, "/v1/batch/objects", r.URL.Path)
		assert.Equal(t, "POST", r.Method)

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		objects := body["objects"].([]interface{})
		assert.Len(t, objects, 1)

		obj := objects[0].(map[string]interface{})
		assert.Equal(t, "ArticleChunk", obj["class"])
		props := obj["properties"].(map[string]interface{})
		assert.Equal(t, "news:1::chunk_0", props["chunkId"])
		assert.Equal(t, "first chunk", props["content"])
		assert.Equal(t, "the_hindu", props["site"])

		if firstID == "" {
			firstID = obj["id"].(string)
		} else {
			secondID = obj["id"].(string)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": obj["id"], "result": map[string]interface{}{"status": "SUCCESS"}},
		})
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	records := []index.Record{{
		ChunkID: "news:1::chunk_0",
		Vector:  []float32{0.1, 0.2},
		Metadata: map[string]interface{}{
			"content": "first chunk",
			"doc_id":  "news:1",
			"site":    "the_hindu",
		},
	}}

	n, err := store.Upsert(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Same chunk id maps to the same object id, so a re-run overwrites.
	_, err = store.Upsert(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, firstID, secondID)
}

func TestStore_Upsert_DimensionMismatch(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			meta(w)
			return
		}
		t.Errorf("unexpected request to %s", r.URL.Path)
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	_, err := store.Upsert(context.Background(), []index.Record{
		{ChunkID: "news:1::chunk_0", Vector: []float32{0.1, 0.2}},
		{ChunkID: "news:1::chunk_1", Vector: []float32{0.1, 0.2, 0.3}},
	})
	assert.ErrorIs(t, err, index.ErrDimensionMismatch)
}

func TestStore_Query(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			meta(w)
			return
		}
		assert.Equal(t, "/v1/graphql", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"Get": map[string]interface{}{
					"ArticleChunk": []interface{}{
						map[string]interface{}{
							"chunkId": "news:2::chunk_0",
							"_additional": map[string]interface{}{
								"certainty": 0.9,
							},
						},
						map[string]interface{}{
							"chunkId": "news:1::chunk_0",
							"_additional": map[string]interface{}{
								"certainty": 0.9,
							},
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	hits, err := store.Query(context.Background(), []float32{0.1, 0.2}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// Certainty 0.9 is cosine 0.8; equal scores break ties by chunk id.
	assert.Equal(t, "news:1::chunk_0", hits[0].ChunkID)
	assert.Equal(t, "news:2::chunk_0", hits[1].ChunkID)
	assert.InDelta(t, 0.8, hits[0].Score, 1e-6)
}

func TestStore_Query_InvalidTopK(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) { meta(w) })
	defer ts.Close()

	store := adapter.NewStore(client)
	_, err := store.Query(context.Background(), []float32{0.1}, 0)
	assert.ErrorIs(t, err, index.ErrInvalidTopK)
}

func TestStore_Delete(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			meta(w)
			return
		}
		assert.Equal(t, "/v1/batch/objects", r.URL.Path)
		assert.Equal(t, "DELETE", r.Method)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{})
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	err := store.Delete(context.Background(), []string{"news:1::chunk_0", "news:1::chunk_1"})
	assert.NoError(t, err)
}

func TestStore_GetChunk(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			meta(w)
			return
		}
		assert.Equal(t, "/v1/graphql", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"Get": map[string]interface{}{
					"ArticleChunk": []interface{}{
						map[string]interface{}{
							"chunkId":    "news:1::chunk_2",
							"docId":      "news:1",
							"chunkIndex": 2.0,
							"content":    "chunk content",
							"site":       "aaj_tak",
							"lang":       "hi",
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	chunk, err := store.GetChunk(context.Background(), "news:1::chunk_2")
	require.NoError(t, err)
	assert.Equal(t, "news:1::chunk_2", chunk.ID)
	assert.Equal(t, "news:1", chunk.DocID)
	assert.Equal(t, 2, chunk.ChunkIndex)
	assert.Equal(t, "chunk content", chunk.Text)
	assert.Equal(t, "aaj_tak", chunk.Meta["site"])
}

func TestStore_GetChunk_NotFound(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			meta(w)
			return
		}
		w.WriteHeader(http.StatusOK)
		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"Get": map[string]interface{}{
					"ArticleChunk": []interface{}{},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	_, err := store.GetChunk(context.Background(), "news:404::chunk_0")
	assert.ErrorIs(t, err, chunkstore.ErrNotFound)
}
