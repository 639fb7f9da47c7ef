// Package analytics answers record count queries against the warehouse.
package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clinsight/clinserve/internal/db"
	"github.com/clinsight/clinserve/internal/observability"
	"github.com/clinsight/clinserve/internal/query"
)

// Errors surfaced to API callers as client errors.
var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownParent = errors.New("unknown parent table")
)

// CountService answers record count queries for a dataset.
type CountService interface {
	// CountRecords counts records of the named logical table in a dataset.
	// A nil config counts rows; a parent config counts distinct references
	// into the configured target table.
	CountRecords(ctx context.Context, datasetID, table string, cfg *query.CountByConfig) (int64, error)
}

// tableSpec maps a logical table onto its warehouse table and the link
// columns pointing at its parent tables.
type tableSpec struct {
	warehouseTable string
	parentLinks    map[string]string
}

// tables is the fixed registry of countable logical tables. Samples link
// back to patients via patient_id; patients have no parent.
var tables = map[string]tableSpec{
	"patients": {warehouseTable: "clinical_patient"},
	"samples": {
		warehouseTable: "clinical_sample",
		parentLinks:    map[string]string{"patients": "patient_id"},
	},
}

// Counts implements CountService against ClickHouse with a Redis
// read-through cache.
type Counts struct {
	CH       *sql.DB
	Cache    *db.RedisStore
	CacheTTL time.Duration
	Logger   *zap.Logger
	Metrics  observability.MetricsRegistry
}

// NewCounts constructs a Counts service. cache may be nil, in which case
// every query hits the warehouse.
func NewCounts(ch *sql.DB, cache *db.RedisStore, ttl time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *Counts {
	return &Counts{CH: ch, Cache: cache, CacheTTL: ttl, Logger: logger, Metrics: metrics}
}

// CountRecords resolves the counting strategy, consults the cache, and
// falls through to a ClickHouse aggregate query.
func (c *Counts) CountRecords(ctx context.Context, datasetID, table string, cfg *query.CountByConfig) (int64, error) {
	spec, ok := tables[table]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	mode := "rows"
	target := ""
	var expr string
	if cfg == nil {
		expr = "count()"
	} else {
		mode = string(cfg.Mode)
		target = cfg.TargetTable
		link, ok := spec.parentLinks[cfg.TargetTable]
		if !ok {
			return 0, fmt.Errorf("%w: %s has no parent %s", ErrUnknownParent, table, cfg.TargetTable)
		}
		expr = fmt.Sprintf("countDistinct(%s)", link)
	}
	c.Metrics.IncrementCountQueries(mode)

	if c.Cache != nil {
		if val, ok, err := c.Cache.GetCachedCount(ctx, datasetID, table, mode, target); err != nil {
			// A broken cache should not fail the count; log and query.
			c.Logger.Warn("count cache read failed", zap.Error(err))
		} else if ok {
			c.Metrics.IncrementCountCacheLookups("hit")
			return val, nil
		} else {
			c.Metrics.IncrementCountCacheLookups("miss")
		}
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE dataset_id = ?", expr, spec.warehouseTable)

	start := time.Now()
	var count int64
	if err := c.CH.QueryRowContext(ctx, stmt, datasetID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	c.Metrics.RecordCountQueryLatency(time.Since(start))

	if c.Cache != nil {
		if err := c.Cache.CacheCount(ctx, datasetID, table, mode, target, count, c.CacheTTL); err != nil {
			c.Logger.Warn("count cache write failed", zap.Error(err))
		}
	}
	return count, nil
}

// CountableTables returns the logical table names the service can count.
func CountableTables() []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	return names
}
