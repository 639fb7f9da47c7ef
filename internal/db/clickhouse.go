package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ClickHouse wraps the warehouse connection holding clinical records.
type ClickHouse struct {
	DB *sql.DB
}

// PoolConfig carries connection pool settings for the warehouse.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// InitClickHouse connects to ClickHouse, verifies connectivity with a
// round-trip query, and ensures the clinical tables exist.
func InitClickHouse(dsn string, pool PoolConfig) (*ClickHouse, error) {
	driverName, err := otelsql.Register("clickhouse",
		otelsql.WithAttributes(
			attribute.String("db.system", "clickhouse"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	// Ping alone only checks the socket; run a query round-trip so a
	// misconfigured database surfaces at startup rather than on the first
	// count request.
	var one uint8
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return nil, fmt.Errorf("clickhouse self-test: %w", err)
	}

	ch := &ClickHouse{DB: db}
	if err := ch.ensureTables(ctx); err != nil {
		return nil, err
	}

	zap.L().Info("Connected to ClickHouse",
		zap.Int("max_open_conns", pool.MaxOpenConns))
	return ch, nil
}

// Close terminates the ClickHouse connection.
func (c *ClickHouse) Close() {
	if c != nil && c.DB != nil {
		_ = c.DB.Close()
	}
}

func (c *ClickHouse) ensureTables(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS clinical_patient (
            dataset_id  UUID,
            patient_id  String,
            attributes  Map(String, String),
            loaded_at   DateTime DEFAULT now()
        ) ENGINE=MergeTree() ORDER BY (dataset_id, patient_id)`,
		`CREATE TABLE IF NOT EXISTS clinical_sample (
            dataset_id  UUID,
            sample_id   String,
            patient_id  String,
            attributes  Map(String, String),
            loaded_at   DateTime DEFAULT now()
        ) ENGINE=MergeTree() ORDER BY (dataset_id, sample_id)`,
	}
	for _, stmt := range ddl {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clickhouse create table: %w", err)
		}
	}
	return nil
}

// PatientRow is one row destined for the clinical_patient table.
type PatientRow struct {
	PatientID  string
	Attributes map[string]string
}

// SampleRow is one row destined for the clinical_sample table.
type SampleRow struct {
	SampleID   string
	PatientID  string
	Attributes map[string]string
}

// InsertPatients bulk-inserts patient rows for a dataset inside a single
// transaction, which clickhouse-go turns into one batch.
func (c *ClickHouse) InsertPatients(ctx context.Context, datasetID string, rows []PatientRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin patient batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO clinical_patient (dataset_id, patient_id, attributes) VALUES (?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare patient insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, datasetID, r.PatientID, r.Attributes); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert patient %s: %w", r.PatientID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit patient batch: %w", err)
	}
	return nil
}

// InsertSamples bulk-inserts sample rows for a dataset.
func (c *ClickHouse) InsertSamples(ctx context.Context, datasetID string, rows []SampleRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sample batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO clinical_sample (dataset_id, sample_id, patient_id, attributes) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare sample insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, datasetID, r.SampleID, r.PatientID, r.Attributes); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert sample %s: %w", r.SampleID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sample batch: %w", err)
	}
	return nil
}

// DeleteDatasetRows removes all warehouse rows belonging to a dataset.
// Mutations are asynchronous in ClickHouse; the registry row is the source
// of truth for dataset existence.
func (c *ClickHouse) DeleteDatasetRows(ctx context.Context, datasetID string) error {
	for _, table := range []string{"clinical_patient", "clinical_sample"} {
		stmt := fmt.Sprintf("ALTER TABLE %s DELETE WHERE dataset_id = ?", table)
		if _, err := c.DB.ExecContext(ctx, stmt, datasetID); err != nil {
			return fmt.Errorf("delete %s rows: %w", table, err)
		}
	}
	return nil
}
