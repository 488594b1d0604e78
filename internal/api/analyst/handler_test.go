package analyst

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"analyst-agent/internal/config"
	"analyst-agent/internal/entity"
	pkgretry "analyst-agent/internal/pkg/retry"
	"analyst-agent/internal/pkg/validator"
	"analyst-agent/internal/session"
)

func testRouter(t *testing.T) (chi.Router, *session.Registry) {
	t.Helper()

	aiCfg := config.AIConfig{
		Backend:        "local",
		LocalURL:       "http://127.0.0.1:1",
		LocalModel:     "local-model",
		ProbeTimeout:   time.Second,
		RequestTimeout: 2 * time.Second,
		Temperature:    0.7,
		MaxTokens:      1000,
		Retry:          *pkgretry.DefaultRetryConfig(),
	}
	uploadCfg := config.FileUploadConfig{
		MaxFileSize:   1 << 20,
		MaxUploadSize: 2 << 20,
	}

	registry := session.NewRegistry(time.Minute, aiCfg, zap.NewNop())
	h := NewHandler(registry, validator.NewFileValidator(uploadCfg), uploadCfg,
		entity.BackendConfig{Kind: entity.BackendLocal})

	r := chi.NewRouter()
	RegisterRoutes(r, h)
	return r, registry
}

func createSession(t *testing.T, r chi.Router) string {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var dto entity.SessionDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	require.NotEmpty(t, dto.ID)
	return dto.ID
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.Copy(fw, strings.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func uploadCSV(t *testing.T, r chi.Router, id string) {
	t.Helper()
	body, contentType := multipartBody(t, "sales.csv",
		"product,price\nwidget,9.99\ngadget,24.50\n")
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%s/files", id), body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCreateSessionDefaults(t *testing.T) {
	r, _ := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))

	require.Equal(t, http.StatusCreated, rec.Code)

	var dto entity.SessionDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, entity.BackendLocal, dto.BackendKind)
	assert.False(t, dto.FileLoaded)
}

func TestCreateSessionCloudWithoutKeyDowngrades(t *testing.T) {
	r, _ := testRouter(t)

	body := strings.NewReader(`{"backend":{"kind":"cloud"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var dto entity.SessionDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, entity.BackendLocal, dto.BackendKind)
}

func TestGetSessionNotFound(t *testing.T) {
	r, _ := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/unknown", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadFileTabular(t *testing.T) {
	r, _ := testRouter(t)
	id := createSession(t, r)

	body, contentType := multipartBody(t, "sales.csv",
		"product,price,sales\nwidget,9.99,120\ngadget,24.50,80\n")
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%s/files", id), body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dto entity.IngestResultDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, entity.ResultTabular, dto.Type)
	require.NotNil(t, dto.TabularInfo)
	assert.Equal(t, 2, dto.TabularInfo.Rows)
	assert.Equal(t, 3, dto.TabularInfo.Columns)
}

func TestUploadFileBadExtension(t *testing.T) {
	r, _ := testRouter(t)
	id := createSession(t, r)

	body, contentType := multipartBody(t, "data.exe", "payload")
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%s/files", id), body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadFileParseFailure(t *testing.T) {
	r, _ := testRouter(t)
	id := createSession(t, r)

	// Valid extension, unreadable content.
	body, contentType := multipartBody(t, "report.xlsx", "not a workbook")
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%s/files", id), body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var dto entity.IngestResultDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, entity.ResultFailure, dto.Type)
	require.NotNil(t, dto.Failure)
	assert.Equal(t, entity.FailureParse, dto.Failure.Kind)
}

func TestGetContext(t *testing.T) {
	r, _ := testRouter(t)
	id := createSession(t, r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/sessions/%s/context", id), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp entity.ContextResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "No data loaded", resp.Context)

	uploadCSV(t, r, id)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/sessions/%s/context", id), nil))

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Context, "Dataset Overview:")
}

func TestAskQuestionUnreachableBackend(t *testing.T) {
	r, _ := testRouter(t)
	id := createSession(t, r)

	body := strings.NewReader(`{"question":"what is the trend?"}`)
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%s/questions", id), body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// The backend converts connection failures to text; the request itself
	// succeeds.
	require.Equal(t, http.StatusOK, rec.Code)
	var resp entity.AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Answer, "cannot connect")
}

func TestAskQuestionValidation(t *testing.T) {
	r, _ := testRouter(t)
	id := createSession(t, r)

	body := strings.NewReader(`{"question":""}`)
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%s/questions", id), body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryLifecycle(t *testing.T) {
	r, _ := testRouter(t)
	id := createSession(t, r)

	ask := func() {
		body := strings.NewReader(`{"question":"q"}`)
		req := httptest.NewRequest(http.MethodPost,
			fmt.Sprintf("/api/v1/sessions/%s/questions", id), body)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	ask()
	ask()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/sessions/%s/history", id), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var hist entity.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Len(t, hist.Entries, 4)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/sessions/%s/history/summary", id), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var summary entity.HistorySummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Contains(t, summary.Summary, "Total questions asked: 2")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/api/v1/sessions/%s/history", id), nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/sessions/%s/history", id), nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Empty(t, hist.Entries)
}

func TestUpdateBackend(t *testing.T) {
	r, _ := testRouter(t)
	id := createSession(t, r)

	body := strings.NewReader(`{"kind":"local"}`)
	req := httptest.NewRequest(http.MethodPut,
		fmt.Sprintf("/api/v1/sessions/%s/backend", id), body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var dto entity.SessionDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, entity.BackendLocal, dto.BackendKind)
}

func TestUpdateBackendUnknownKind(t *testing.T) {
	r, _ := testRouter(t)
	id := createSession(t, r)

	body := strings.NewReader(`{"kind":"quantum"}`)
	req := httptest.NewRequest(http.MethodPut,
		fmt.Sprintf("/api/v1/sessions/%s/backend", id), body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBackendUnreachable(t *testing.T) {
	r, _ := testRouter(t)
	id := createSession(t, r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/sessions/%s/backend", id), nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Kind      string `json:"kind"`
		Reachable bool   `json:"reachable"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "local", resp.Kind)
	assert.False(t, resp.Reachable)
}

func TestExportMarkdown(t *testing.T) {
	r, _ := testRouter(t)
	id := createSession(t, r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/sessions/%s/export?format=markdown", id), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "transcript.md")
	assert.Contains(t, rec.Body.String(), "# Analysis Transcript")
	assert.Contains(t, rec.Body.String(), "No data loaded")
}

func TestExportUnknownFormat(t *testing.T) {
	r, _ := testRouter(t)
	id := createSession(t, r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/sessions/%s/export?format=html", id), nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	r, registry := testRouter(t)
	id := createSession(t, r)
	require.Equal(t, 1, registry.Count())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/api/v1/sessions/%s", id), nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, registry.Count())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/sessions/%s", id), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
