package api

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/clinsight/clinserve/internal/analytics"
	"github.com/clinsight/clinserve/internal/middleware"
	"github.com/clinsight/clinserve/internal/models"
	"github.com/clinsight/clinserve/internal/query"
)

// CountsHandler handles GET /api/datasets/{id}/counts. The optional
// countBy query parameter selects the counting strategy; table defaults
// to samples.
func (s *Server) CountsHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	const endpoint = "counts"
	const method = "GET"
	defer func() { s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start)) }()

	id, ok := s.datasetID(w, r, endpoint, method)
	if !ok {
		return
	}

	table := r.URL.Query().Get("table")
	if table == "" {
		table = "samples"
	}

	cfg, err := query.ParseCountBy(r.URL.Query().Get("countBy"))
	if err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.Counts == nil {
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "count service unavailable", http.StatusInternalServerError)
		return
	}

	count, err := s.Counts.CountRecords(r.Context(), id, table, cfg)
	if errors.Is(err, analytics.ErrUnknownTable) || errors.Is(err, analytics.ErrUnknownParent) {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		middleware.LoggerFromRequest(r, s.Logger).Error("count records",
			zap.Error(err),
			zap.String("dataset_id", id),
			zap.String("table", table))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	mode := "rows"
	if cfg != nil {
		mode = string(cfg.Mode)
	}
	result := models.CountResult{
		DatasetID: id,
		Table:     table,
		Mode:      mode,
		Count:     count,
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	writeJSON(w, http.StatusOK, result)
}
