package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/clinsight/clinserve/internal/analytics"
	"github.com/clinsight/clinserve/internal/api"
	"github.com/clinsight/clinserve/internal/clinical"
	"github.com/clinsight/clinserve/internal/config"
	"github.com/clinsight/clinserve/internal/db"
	"github.com/clinsight/clinserve/internal/middleware"
	"github.com/clinsight/clinserve/internal/observability"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLogger(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.OTLPEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	ch, err := db.InitClickHouse(cfg.ClickHouseDSN, db.PoolConfig{
		MaxOpenConns:    cfg.CHMaxOpenConns,
		MaxIdleConns:    cfg.CHMaxIdleConns,
		ConnMaxLifetime: cfg.CHConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect clickhouse: %w", err)
	}
	defer ch.Close()

	cache, err := db.InitRedis(cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}
	defer cache.Close()

	metricsRegistry := observability.NewPrometheusRegistry()
	loader := clinical.NewLoader(ch, logger, metricsRegistry)
	counts := analytics.NewCounts(ch.DB, cache, cfg.CountCacheTTL, logger, metricsRegistry)

	srvDeps := api.NewServer(logger, pg, ch, cache, loader, counts, metricsRegistry, cfg)

	r := mux.NewRouter()
	r.Use(middleware.WithTraceLogger(logger))

	r.HandleFunc("/health", srvDeps.HealthHandler).Methods("GET")

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/datasets", srvDeps.CreateDatasetHandler).Methods("POST")
	apiRouter.HandleFunc("/datasets", srvDeps.ListDatasetsHandler).Methods("GET")
	apiRouter.HandleFunc("/datasets/{id}", srvDeps.GetDatasetHandler).Methods("GET")
	apiRouter.HandleFunc("/datasets/{id}", srvDeps.DeleteDatasetHandler).Methods("DELETE")
	apiRouter.HandleFunc("/datasets/{id}/files", srvDeps.UploadFileHandler).Methods("POST")
	apiRouter.HandleFunc("/datasets/{id}/counts", srvDeps.CountsHandler).Methods("GET")

	r.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = r
	if cfg.TracingEnabled {
		handler = otelhttp.NewHandler(r, cfg.ServiceName)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Dataset warehouse running", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
