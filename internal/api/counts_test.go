package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinsight/clinserve/internal/analytics"
	"github.com/clinsight/clinserve/internal/query"
)

const testDatasetID = "11111111-2222-3333-4444-555555555555"

func countsRequest(t *testing.T, target string, mock *analytics.MockCountService) *httptest.ResponseRecorder {
	t.Helper()
	srv := newTestServer()
	srv.Counts = mock

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = mux.SetURLVars(req, map[string]string{"id": testDatasetID})
	rec := httptest.NewRecorder()
	srv.CountsHandler(rec, req)
	return rec
}

func TestCountsHandler_DefaultRows(t *testing.T) {
	mock := &analytics.MockCountService{Count: 10}
	rec := countsRequest(t, "/api/datasets/"+testDatasetID+"/counts", mock)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, mock.LastCfg)
	assert.Equal(t, "samples", mock.LastTable)
	assert.Contains(t, rec.Body.String(), `"mode":"rows"`)
	assert.Contains(t, rec.Body.String(), `"count":10`)
}

func TestCountsHandler_ExplicitRowsSentinel(t *testing.T) {
	mock := &analytics.MockCountService{Count: 3}
	rec := countsRequest(t, "/api/datasets/"+testDatasetID+"/counts?countBy=ROWS", mock)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, mock.LastCfg)
}

func TestCountsHandler_ParentMode(t *testing.T) {
	mock := &analytics.MockCountService{Count: 7}
	rec := countsRequest(t, "/api/datasets/"+testDatasetID+"/counts?countBy=parent:patients", mock)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, mock.LastCfg)
	assert.Equal(t, query.CountModeParent, mock.LastCfg.Mode)
	assert.Equal(t, "patients", mock.LastCfg.TargetTable)
	assert.Contains(t, rec.Body.String(), `"mode":"parent"`)
}

func TestCountsHandler_InvalidCountBy(t *testing.T) {
	mock := &analytics.MockCountService{}
	rec := countsRequest(t, "/api/datasets/"+testDatasetID+"/counts?countBy=foo", mock)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid countBy parameter", strings.TrimSpace(rec.Body.String()))
	// the count service must not be consulted for an unparseable directive
	assert.Empty(t, mock.LastTable)
}

func TestCountsHandler_WrongCaseParentPrefix(t *testing.T) {
	mock := &analytics.MockCountService{}
	rec := countsRequest(t, "/api/datasets/"+testDatasetID+"/counts?countBy=PARENT:patients", mock)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid countBy parameter", strings.TrimSpace(rec.Body.String()))
}

func TestCountsHandler_UnknownTable(t *testing.T) {
	mock := &analytics.MockCountService{Err: analytics.ErrUnknownTable}
	rec := countsRequest(t, "/api/datasets/"+testDatasetID+"/counts?table=studies", mock)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCountsHandler_InvalidDatasetID(t *testing.T) {
	srv := newTestServer()
	srv.Counts = &analytics.MockCountService{}

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/not-a-uuid/counts", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "not-a-uuid"})
	rec := httptest.NewRecorder()
	srv.CountsHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
