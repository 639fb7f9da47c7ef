package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clinsight/clinserve/internal/config"
	"github.com/clinsight/clinserve/internal/observability"
)

func newTestServer() *Server {
	return &Server{
		Logger:  zap.NewNop(),
		Metrics: observability.NewNoOpRegistry(),
		Config:  config.Config{UploadMaxBytes: 1 << 20},
	}
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.HealthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateDatasetHandler_InvalidJSON(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.CreateDatasetHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDatasetHandler_NameRequired(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", strings.NewReader(`{"name":"   "}`))
	rec := httptest.NewRecorder()
	srv.CreateDatasetHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name required")
}

func TestCreateDatasetHandler_RegistryUnavailable(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", strings.NewReader(`{"name":"study-1"}`))
	rec := httptest.NewRecorder()
	srv.CreateDatasetHandler(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func multipartBody(t *testing.T, kind, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("kind", kind))
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadFileHandler_InvalidKind(t *testing.T) {
	srv := newTestServer()

	body, contentType := multipartBody(t, "studies", "studies.tsv", "STUDY_ID\nST-1\n")
	req := httptest.NewRequest(http.MethodPost, "/api/datasets/"+testDatasetID+"/files", body)
	req.Header.Set("Content-Type", contentType)
	req = mux.SetURLVars(req, map[string]string{"id": testDatasetID})
	rec := httptest.NewRecorder()
	srv.UploadFileHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "kind must be patients or samples")
}

func TestUploadFileHandler_MissingFilePart(t *testing.T) {
	srv := newTestServer()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("kind", "patients"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/"+testDatasetID+"/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = mux.SetURLVars(req, map[string]string{"id": testDatasetID})
	rec := httptest.NewRecorder()
	srv.UploadFileHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file part required")
}

func TestUploadFileHandler_InvalidDatasetID(t *testing.T) {
	srv := newTestServer()

	body, contentType := multipartBody(t, "patients", "patients.tsv", "PATIENT_ID\nP-0001\n")
	req := httptest.NewRequest(http.MethodPost, "/api/datasets/abc/files", body)
	req.Header.Set("Content-Type", contentType)
	req = mux.SetURLVars(req, map[string]string{"id": "abc"})
	rec := httptest.NewRecorder()
	srv.UploadFileHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid dataset id")
}

func TestGetDatasetHandler_InvalidID(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/xyz", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "xyz"})
	rec := httptest.NewRecorder()
	srv.GetDatasetHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
