// Package dataset provides the REST client used to publish clinical data
// files to the service as a new dataset.
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/clinsight/clinserve/internal/models"
)

// Client talks to the clinserve dataset API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a dataset API client.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// CreateDatasetRequest is the JSON payload for dataset creation.
type CreateDatasetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateDataset registers a new dataset and returns it.
func (c *Client) CreateDataset(ctx context.Context, name, description string) (models.Dataset, error) {
	body, err := json.Marshal(CreateDatasetRequest{Name: name, Description: description})
	if err != nil {
		return models.Dataset{}, fmt.Errorf("marshal create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/datasets", bytes.NewReader(body))
	if err != nil {
		return models.Dataset{}, fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Dataset{}, fmt.Errorf("create dataset: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return models.Dataset{}, fmt.Errorf("create dataset: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var ds models.Dataset
	if err := json.NewDecoder(resp.Body).Decode(&ds); err != nil {
		return models.Dataset{}, fmt.Errorf("decode create response: %w", err)
	}
	return ds, nil
}

// UploadFile uploads one tab-delimited clinical file of the given kind to
// an existing dataset.
func (c *Client) UploadFile(ctx context.Context, datasetID, kind, path string) (models.DatasetFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.DatasetFile{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("kind", kind); err != nil {
		return models.DatasetFile{}, fmt.Errorf("write kind field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return models.DatasetFile{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return models.DatasetFile{}, fmt.Errorf("copy %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return models.DatasetFile{}, fmt.Errorf("finalize multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/api/datasets/%s/files", c.baseURL, datasetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return models.DatasetFile{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.DatasetFile{}, fmt.Errorf("upload %s file: %w", kind, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return models.DatasetFile{}, fmt.Errorf("upload %s file: status %d: %s", kind, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var df models.DatasetFile
	if err := json.NewDecoder(resp.Body).Decode(&df); err != nil {
		return models.DatasetFile{}, fmt.Errorf("decode upload response: %w", err)
	}
	return df, nil
}

// UploadClinicalData publishes a patients file and a samples file as a new
// dataset. It performs exactly three sequential HTTP calls (create, upload
// patients, upload samples) and stops at the first failure; there is no
// retry and no cleanup of a partially uploaded dataset.
func (c *Client) UploadClinicalData(ctx context.Context, name, description, patientsPath, samplesPath string) (models.Dataset, error) {
	ds, err := c.CreateDataset(ctx, name, description)
	if err != nil {
		return models.Dataset{}, err
	}
	c.logger.Info("dataset created", zap.String("dataset_id", ds.ID), zap.String("name", ds.Name))

	pf, err := c.UploadFile(ctx, ds.ID, models.FileKindPatients, patientsPath)
	if err != nil {
		return models.Dataset{}, err
	}
	c.logger.Info("patients file uploaded", zap.String("dataset_id", ds.ID), zap.Int("rows", pf.RowCount))

	sf, err := c.UploadFile(ctx, ds.ID, models.FileKindSamples, samplesPath)
	if err != nil {
		return models.Dataset{}, err
	}
	c.logger.Info("samples file uploaded", zap.String("dataset_id", ds.ID), zap.Int("rows", sf.RowCount))

	return ds, nil
}
