package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"avokati-backend/models"
	"avokati-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct{}

func (memoryStore) Put(ctx context.Context, doc *models.Document) error  { return nil }
func (memoryStore) GetAll(ctx context.Context) ([]*models.Document, error) { return nil, nil }
func (memoryStore) Delete(ctx context.Context, id uuid.UUID) error       { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *service.DocumentService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	docs := service.NewDocumentService(service.DocumentsWithStore(memoryStore{}))
	h := NewDocumentHandler(docs)

	r := gin.New()
	r.POST("/api/documents", h.Upload)
	r.GET("/api/documents", h.List)
	r.GET("/api/documents/usage", h.Usage)
	r.POST("/api/documents/toggle", h.ToggleAll)
	r.POST("/api/documents/:id/toggle", h.Toggle)
	r.DELETE("/api/documents/:id", h.Delete)
	return r, docs
}

func multipartUpload(t *testing.T, category string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if category != "" {
		require.NoError(t, writer.WriteField("category", category))
	}
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadDefaultsToLawCategory(t *testing.T) {
	r, docs := newTestRouter(t)

	body, contentType := multipartUpload(t, "", map[string][]byte{
		"kodi-civil.pdf": []byte("%PDF-1.4"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	all := docs.List()
	require.Len(t, all, 1)
	assert.Equal(t, models.CategoryLaw, all[0].Category)
}

func TestUploadRejectsUnknownCategory(t *testing.T) {
	r, _ := newTestRouter(t)

	body, contentType := multipartUpload(t, "contract", map[string][]byte{
		"kodi.pdf": []byte("%PDF-1.4"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "INVALID_CATEGORY", resp.Error.Code)
}

func TestUploadAllFilesInvalidReturnsBadRequest(t *testing.T) {
	r, _ := newTestRouter(t)

	body, contentType := multipartUpload(t, "law", map[string][]byte{
		"shenime.txt": []byte("jo pdf"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggleRoundTrip(t *testing.T) {
	r, docs := newTestRouter(t)

	result, err := docs.Ingest(context.Background(), []service.Upload{{
		Name:     "kodi.pdf",
		MimeType: "application/pdf",
		Content:  []byte("%PDF-1.4"),
		Category: models.CategoryLaw,
	}})
	require.NoError(t, err)
	id := result.Added[0].ID

	url := fmt.Sprintf("/api/documents/%s/toggle", id)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, url, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	all := docs.List()
	require.Len(t, all, 1)
	assert.False(t, all[0].Active)
}

func TestToggleUnknownIDReturnsNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	url := fmt.Sprintf("/api/documents/%s/toggle", uuid.New())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, url, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestToggleMalformedIDReturnsBadRequest(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/documents/not-a-uuid/toggle", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteRemovesDocument(t *testing.T) {
	r, docs := newTestRouter(t)

	result, err := docs.Ingest(context.Background(), []service.Upload{{
		Name:     "kodi.pdf",
		MimeType: "application/pdf",
		Content:  []byte("%PDF-1.4"),
		Category: models.CategoryLaw,
	}})
	require.NoError(t, err)

	url := fmt.Sprintf("/api/documents/%s", result.Added[0].ID)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, url, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, docs.List())
}

func TestListReportsUsage(t *testing.T) {
	r, docs := newTestRouter(t)

	_, err := docs.Ingest(context.Background(), []service.Upload{{
		Name:     "kodi.pdf",
		MimeType: "application/pdf",
		Content:  bytes.Repeat([]byte("a"), 1024),
		Category: models.CategoryLaw,
	}})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Documents []json.RawMessage `json:"documents"`
			Usage     struct {
				Bytes  int64 `json:"bytes"`
				Budget int64 `json:"budget"`
			} `json:"usage"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data.Documents, 1)
	assert.Equal(t, int64(1024), resp.Data.Usage.Bytes)
	assert.Equal(t, int64(service.MaxActiveSizeBytes), resp.Data.Usage.Budget)
}
