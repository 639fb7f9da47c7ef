// Package api implements the HTTP handlers for the dataset warehouse.
package api

import (
	"go.uber.org/zap"

	"github.com/clinsight/clinserve/internal/analytics"
	"github.com/clinsight/clinserve/internal/clinical"
	"github.com/clinsight/clinserve/internal/config"
	"github.com/clinsight/clinserve/internal/db"
	"github.com/clinsight/clinserve/internal/observability"
)

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger  *zap.Logger
	PG      *db.Postgres
	CH      *db.ClickHouse
	Cache   *db.RedisStore
	Loader  *clinical.Loader
	Counts  analytics.CountService
	Metrics observability.MetricsRegistry
	Config  config.Config
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, pg *db.Postgres, ch *db.ClickHouse, cache *db.RedisStore, loader *clinical.Loader, counts analytics.CountService, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	return &Server{
		Logger:  logger,
		PG:      pg,
		CH:      ch,
		Cache:   cache,
		Loader:  loader,
		Counts:  counts,
		Metrics: metrics,
		Config:  cfg,
	}
}
