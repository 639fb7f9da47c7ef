package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/clinsight/clinserve/internal/models"
)

func writeTempTSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestUploadClinicalData(t *testing.T) {
	var calls []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/datasets":
			calls = append(calls, "create")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"11111111-2222-3333-4444-555555555555","name":"study-1","status":"pending"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/datasets/11111111-2222-3333-4444-555555555555/files":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			kind := r.FormValue("kind")
			calls = append(calls, "upload:"+kind)
			assert.True(t, models.ValidFileKind(kind))
			_, header, err := r.FormFile("file")
			require.NoError(t, err)
			assert.NotEmpty(t, header.Filename)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"dataset_id":"11111111-2222-3333-4444-555555555555","kind":"` + kind + `","row_count":2}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	patients := writeTempTSV(t, "patients.tsv", "PATIENT_ID\tAGE\nP-0001\t54\nP-0002\t61\n")
	samples := writeTempTSV(t, "samples.tsv", "SAMPLE_ID\tPATIENT_ID\nS-0001\tP-0001\nS-0002\tP-0002\n")

	client := NewClient(srv.URL, 5*time.Second, zaptest.NewLogger(t))
	ds, err := client.UploadClinicalData(context.Background(), "study-1", "", patients, samples)
	require.NoError(t, err)

	assert.Equal(t, "11111111-2222-3333-4444-555555555555", ds.ID)
	// three sequential calls, patients before samples
	assert.Equal(t, []string{"create", "upload:patients", "upload:samples"}, calls)
}

func TestUploadClinicalData_StopsOnCreateFailure(t *testing.T) {
	var uploads int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/datasets" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		uploads++
	}))
	defer srv.Close()

	patients := writeTempTSV(t, "patients.tsv", "PATIENT_ID\nP-0001\n")
	samples := writeTempTSV(t, "samples.tsv", "SAMPLE_ID\tPATIENT_ID\nS-0001\tP-0001\n")

	client := NewClient(srv.URL, 5*time.Second, zaptest.NewLogger(t))
	_, err := client.UploadClinicalData(context.Background(), "", "", patients, samples)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Zero(t, uploads, "no upload call should follow a failed create")
}

func TestUploadClinicalData_StopsOnFirstUploadFailure(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/datasets" {
			calls = append(calls, "create")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"ds-1","name":"study-1","status":"pending"}`))
			return
		}
		require.NoError(t, r.ParseMultipartForm(1<<20))
		calls = append(calls, "upload:"+r.FormValue("kind"))
		http.Error(w, "Invalid clinical file", http.StatusBadRequest)
	}))
	defer srv.Close()

	patients := writeTempTSV(t, "patients.tsv", "PATIENT_ID\nP-0001\n")
	samples := writeTempTSV(t, "samples.tsv", "SAMPLE_ID\tPATIENT_ID\nS-0001\tP-0001\n")

	client := NewClient(srv.URL, 5*time.Second, zaptest.NewLogger(t))
	_, err := client.UploadClinicalData(context.Background(), "study-1", "", patients, samples)
	require.Error(t, err)
	assert.Equal(t, []string{"create", "upload:patients"}, calls)
}

func TestUploadFile_MissingFile(t *testing.T) {
	client := NewClient("http://localhost:0", time.Second, zaptest.NewLogger(t))
	_, err := client.UploadFile(context.Background(), "ds-1", models.FileKindPatients, "/does/not/exist.tsv")
	require.Error(t, err)
}
