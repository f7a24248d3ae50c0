package search_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"samachar/backend/features/search"
	"samachar/backend/internal/index"
	"samachar/backend/internal/retrieval"
)

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Query(ctx context.Context, queryText string, topK int) ([]retrieval.Result, error) {
	args := m.Called(ctx, queryText, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]retrieval.Result), args.Error(1)
}

func TestHandler_Query(t *testing.T) {
	retriever := new(MockRetriever)
	handler := search.NewHandler(retriever, 5)

	results := []retrieval.Result{
		{ChunkID: "news:1::chunk_0", Content: "first chunk", Score: 0.92},
		{ChunkID: "news:2::chunk_1", Content: "second chunk", Score: 0.81},
	}
	retriever.On("Query", mock.Anything, "climate policy", 3).Return(results, nil)

	body := `{"query":"climate policy","top_k":3}`
	req := httptest.NewRequest("POST", "/query", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)

	var resp struct {
		Query    string             `json:"query"`
		Contexts []retrieval.Result `json:"contexts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "climate policy", resp.Query)
	require.Len(t, resp.Contexts, 2)
	assert.Equal(t, "news:1::chunk_0", resp.Contexts[0].ChunkID)
}

func TestHandler_Query_DefaultTopK(t *testing.T) {
	retriever := new(MockRetriever)
	handler := search.NewHandler(retriever, 5)

	retriever.On("Query", mock.Anything, "anything", 5).Return([]retrieval.Result{}, nil)

	req := httptest.NewRequest("POST", "/query", strings.NewReader(`{"query":"anything"}`))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), `"contexts":[]`)
	retriever.AssertExpectations(t)
}

func TestHandler_Query_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"Empty Query", `{"query":"  "}`, retrieval.ErrInvalidQuery, http.StatusBadRequest},
		{"Negative TopK", `{"query":"q","top_k":-1}`, index.ErrInvalidTopK, http.StatusBadRequest},
		{"Backend Down", `{"query":"q"}`, fmt.Errorf("embedding backend: connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retriever := new(MockRetriever)
			handler := search.NewHandler(retriever, 5)
			retriever.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			req := httptest.NewRequest("POST", "/query", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.Query(w, req)
			assert.Equal(t, tt.wantStatus, w.Result().StatusCode)
		})
	}
}

func TestHandler_Query_InvalidJSON(t *testing.T) {
	handler := search.NewHandler(new(MockRetriever), 5)

	req := httptest.NewRequest("POST", "/query", strings.NewReader("not json"))
	w := httptest.NewRecorder()

	handler.Query(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}
