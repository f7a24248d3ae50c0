package article_test

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"samachar/backend/features/article"
	"samachar/backend/internal/pipeline"
)

func TestHandler_Create(t *testing.T) {
	repo := new(MockRepo)
	pub := new(MockPublisher)
	handler := article.NewHandler(article.NewService(repo, new(MockIndexer), pub))

	repo.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*article.Article).ID = 11
	}).Return(nil)
	pub.On("Publish", "index.task", mock.Anything).Return(nil)

	body := `{"site":"the_hindu","url":"https://example.com/1","title":"headline","content":"body text"}`
	req := httptest.NewRequest("POST", "/articles", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Result().StatusCode)

	var resp map[string]article.Article
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(11), resp["data"].ID)
}

func TestHandler_Create_Validation(t *testing.T) {
	handler := article.NewHandler(article.NewService(new(MockRepo), new(MockIndexer), nil))

	t.Run("Missing URL", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/articles", strings.NewReader(`{"content":"text"}`))
		w := httptest.NewRecorder()
		handler.Create(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	t.Run("Missing Content", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/articles", strings.NewReader(`{"url":"https://example.com"}`))
		w := httptest.NewRecorder()
		handler.Create(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/articles", strings.NewReader("not json"))
		w := httptest.NewRecorder()
		handler.Create(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})
}

func TestHandler_List(t *testing.T) {
	repo := new(MockRepo)
	handler := article.NewHandler(article.NewService(repo, new(MockIndexer), nil))

	repo.On("List", mock.Anything, 100, 0).Return([]article.Article{}, nil)

	req := httptest.NewRequest("GET", "/articles", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestHandler_Get_NotFound(t *testing.T) {
	repo := new(MockRepo)
	handler := article.NewHandler(article.NewService(repo, new(MockIndexer), nil))

	repo.On("Get", mock.Anything, int64(99)).Return(nil, sql.ErrNoRows)

	req := httptest.NewRequest("GET", "/articles/99", nil)
	req.SetPathValue("id", "99")
	w := httptest.NewRecorder()

	handler.Get(w, req)
	assert.Equal(t, http.StatusNotFound, w.Result().StatusCode)
}

func TestHandler_Reindex(t *testing.T) {
	repo := new(MockRepo)
	indexer := new(MockIndexer)
	handler := article.NewHandler(article.NewService(repo, indexer, nil))

	repo.On("List", mock.Anything, 100, 0).Return([]article.Article{{ID: 1, Content: "text"}}, nil).Once()
	repo.On("List", mock.Anything, 100, 1).Return([]article.Article{}, nil).Once()
	indexer.On("IndexDocuments", mock.Anything, mock.Anything).
		Return(pipeline.Report{ChunksWritten: 2, VectorsWritten: 2}, nil)

	req := httptest.NewRequest("POST", "/articles/reindex", nil)
	w := httptest.NewRecorder()

	handler.Reindex(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Contains(t, w.Body.String(), `"chunks_written":2`)
}
