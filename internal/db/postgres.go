package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/clinsight/clinserve/internal/models"
)

// Postgres wraps the dataset registry connection.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the registry tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS datasets (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS dataset_files (
    id SERIAL PRIMARY KEY,
    dataset_id UUID REFERENCES datasets(id) ON DELETE CASCADE,
    kind VARCHAR(20) NOT NULL,
    filename TEXT NOT NULL,
    row_count INT NOT NULL,
    uploaded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_dataset_files_dataset_id ON dataset_files (dataset_id);
CREATE INDEX IF NOT EXISTS idx_datasets_status ON datasets (status);
`

// InitPostgres opens the registry connection with pooling configured and
// ensures the schema exists.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		_ = p.DB.Close()
	}
}

func (p *Postgres) ensureSchema() error {
	if _, err := p.DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertDataset registers a new dataset.
func (p *Postgres) InsertDataset(ctx context.Context, d models.Dataset) error {
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO datasets (id, name, description, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.Name, d.Description, d.Status, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

// GetDataset fetches a dataset by ID. sql.ErrNoRows is returned when the
// dataset does not exist.
func (p *Postgres) GetDataset(ctx context.Context, id string) (models.Dataset, error) {
	var d models.Dataset
	err := p.DB.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(description, ''), status, created_at FROM datasets WHERE id = $1`,
		id).Scan(&d.ID, &d.Name, &d.Description, &d.Status, &d.CreatedAt)
	if err != nil {
		return models.Dataset{}, err
	}
	return d, nil
}

// ListDatasets returns all registered datasets, newest first.
func (p *Postgres) ListDatasets(ctx context.Context) ([]models.Dataset, error) {
	rows, err := p.DB.QueryContext(ctx,
		`SELECT id, name, COALESCE(description, ''), status, created_at FROM datasets ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Dataset
	for rows.Next() {
		var d models.Dataset
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDatasetStatus sets the status of a dataset.
func (p *Postgres) UpdateDatasetStatus(ctx context.Context, id, status string) error {
	res, err := p.DB.ExecContext(ctx, `UPDATE datasets SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update dataset status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteDataset removes a dataset and, via cascade, its file manifest.
func (p *Postgres) DeleteDataset(ctx context.Context, id string) error {
	res, err := p.DB.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// InsertDatasetFile records an uploaded clinical file in the manifest.
func (p *Postgres) InsertDatasetFile(ctx context.Context, f models.DatasetFile) error {
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO dataset_files (dataset_id, kind, filename, row_count, uploaded_at) VALUES ($1, $2, $3, $4, $5)`,
		f.DatasetID, f.Kind, f.Filename, f.RowCount, f.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert dataset file: %w", err)
	}
	return nil
}

// ListDatasetFiles returns the file manifest for a dataset.
func (p *Postgres) ListDatasetFiles(ctx context.Context, datasetID string) ([]models.DatasetFile, error) {
	rows, err := p.DB.QueryContext(ctx,
		`SELECT id, dataset_id, kind, filename, row_count, uploaded_at FROM dataset_files WHERE dataset_id = $1 ORDER BY uploaded_at`,
		datasetID)
	if err != nil {
		return nil, fmt.Errorf("list dataset files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.DatasetFile
	for rows.Next() {
		var f models.DatasetFile
		if err := rows.Scan(&f.ID, &f.DatasetID, &f.Kind, &f.Filename, &f.RowCount, &f.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan dataset file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
