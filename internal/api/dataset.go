package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/clinsight/clinserve/internal/clinical"
	"github.com/clinsight/clinserve/internal/models"
)

// CreateDatasetRequest is the payload for registering a dataset.
type CreateDatasetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateDatasetHandler handles POST /api/datasets.
func (s *Server) CreateDatasetHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "create_dataset"
	const method = "POST"
	defer func() { s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start)) }()

	var req CreateDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}

	if s.PG == nil {
		s.Logger.Error("dataset registry unavailable")
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "registry unavailable", http.StatusInternalServerError)
		return
	}

	ds := models.Dataset{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Status:      models.DatasetStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.PG.InsertDataset(r.Context(), ds); err != nil {
		s.Logger.Error("insert dataset", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Metrics.IncrementDatasetsCreated()
	s.Metrics.IncrementRequests(endpoint, method, "201")
	writeJSON(w, http.StatusCreated, ds)
}

// ListDatasetsHandler handles GET /api/datasets.
func (s *Server) ListDatasetsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "list_datasets"
	const method = "GET"
	defer func() { s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start)) }()

	if s.PG == nil {
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "registry unavailable", http.StatusInternalServerError)
		return
	}

	datasets, err := s.PG.ListDatasets(r.Context())
	if err != nil {
		s.Logger.Error("list datasets", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if datasets == nil {
		datasets = []models.Dataset{}
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	writeJSON(w, http.StatusOK, datasets)
}

// DatasetResponse is a dataset together with its file manifest.
type DatasetResponse struct {
	models.Dataset
	Files []models.DatasetFile `json:"files"`
}

// GetDatasetHandler handles GET /api/datasets/{id}.
func (s *Server) GetDatasetHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "get_dataset"
	const method = "GET"
	defer func() { s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start)) }()

	id, ok := s.datasetID(w, r, endpoint, method)
	if !ok {
		return
	}

	if s.PG == nil {
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "registry unavailable", http.StatusInternalServerError)
		return
	}

	ds, err := s.PG.GetDataset(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		s.Metrics.IncrementRequests(endpoint, method, "404")
		http.Error(w, "dataset not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.Logger.Error("get dataset", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	files, err := s.PG.ListDatasetFiles(r.Context(), id)
	if err != nil {
		s.Logger.Error("list dataset files", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []models.DatasetFile{}
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	writeJSON(w, http.StatusOK, DatasetResponse{Dataset: ds, Files: files})
}

// DeleteDatasetHandler handles DELETE /api/datasets/{id}. The registry row
// goes first; warehouse rows and cached counts follow.
func (s *Server) DeleteDatasetHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "delete_dataset"
	const method = "DELETE"
	defer func() { s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start)) }()

	id, ok := s.datasetID(w, r, endpoint, method)
	if !ok {
		return
	}

	if s.PG == nil {
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "registry unavailable", http.StatusInternalServerError)
		return
	}

	err := s.PG.DeleteDataset(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		s.Metrics.IncrementRequests(endpoint, method, "404")
		http.Error(w, "dataset not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.Logger.Error("delete dataset", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if s.CH != nil {
		if err := s.CH.DeleteDatasetRows(r.Context(), id); err != nil {
			// The registry row is already gone; orphaned warehouse rows are
			// invisible to the API, so log and move on.
			s.Logger.Error("delete warehouse rows", zap.Error(err), zap.String("dataset_id", id))
		}
	}
	if s.Cache != nil {
		if err := s.Cache.InvalidateDatasetCounts(r.Context(), id); err != nil {
			s.Logger.Warn("invalidate count cache", zap.Error(err))
		}
	}

	s.Metrics.IncrementRequests(endpoint, method, "204")
	w.WriteHeader(http.StatusNoContent)
}

// UploadFileHandler handles POST /api/datasets/{id}/files. The multipart
// body carries a "kind" field (patients|samples) and the TSV under "file".
func (s *Server) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "upload_file"
	const method = "POST"
	defer func() { s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start)) }()

	id, ok := s.datasetID(w, r, endpoint, method)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.Config.UploadMaxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}

	kind := r.FormValue("kind")
	if !models.ValidFileKind(kind) {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		http.Error(w, "kind must be patients or samples", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		http.Error(w, "file part required", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	if s.PG == nil || s.Loader == nil {
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "service unavailable", http.StatusInternalServerError)
		return
	}

	if _, err := s.PG.GetDataset(r.Context(), id); errors.Is(err, sql.ErrNoRows) {
		s.Metrics.IncrementRequests(endpoint, method, "404")
		http.Error(w, "dataset not found", http.StatusNotFound)
		return
	} else if err != nil {
		s.Logger.Error("get dataset", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	rows, err := s.Loader.Load(r.Context(), id, kind, file)
	if errors.Is(err, clinical.ErrInvalidFile) {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.Logger.Error("load clinical file", zap.Error(err), zap.String("kind", kind))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	df := models.DatasetFile{
		DatasetID:  id,
		Kind:       kind,
		Filename:   header.Filename,
		RowCount:   rows,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.PG.InsertDatasetFile(r.Context(), df); err != nil {
		s.Logger.Error("record dataset file", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.maybeMarkReady(r, id)

	if s.Cache != nil {
		if err := s.Cache.InvalidateDatasetCounts(r.Context(), id); err != nil {
			s.Logger.Warn("invalidate count cache", zap.Error(err))
		}
	}

	s.Metrics.IncrementRequests(endpoint, method, "201")
	writeJSON(w, http.StatusCreated, df)
}

// maybeMarkReady flips the dataset to ready once both file kinds appear in
// the manifest.
func (s *Server) maybeMarkReady(r *http.Request, id string) {
	files, err := s.PG.ListDatasetFiles(r.Context(), id)
	if err != nil {
		s.Logger.Warn("list dataset files", zap.Error(err))
		return
	}
	var havePatients, haveSamples bool
	for _, f := range files {
		switch f.Kind {
		case models.FileKindPatients:
			havePatients = true
		case models.FileKindSamples:
			haveSamples = true
		}
	}
	if havePatients && haveSamples {
		if err := s.PG.UpdateDatasetStatus(r.Context(), id, models.DatasetStatusReady); err != nil {
			s.Logger.Warn("mark dataset ready", zap.Error(err))
		}
	}
}

// datasetID extracts and validates the {id} path variable.
func (s *Server) datasetID(w http.ResponseWriter, r *http.Request, endpoint, method string) (string, bool) {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		http.Error(w, "invalid dataset id", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
