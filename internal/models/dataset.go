// Package models defines the dataset domain types shared across the
// registry, warehouse and API layers.
package models

import "time"

// Dataset statuses. A dataset starts pending and becomes ready once both
// clinical files have been loaded.
const (
	DatasetStatusPending = "pending"
	DatasetStatusReady   = "ready"
)

// File kinds accepted for clinical uploads.
const (
	FileKindPatients = "patients"
	FileKindSamples  = "samples"
)

// ValidFileKind reports whether kind names an accepted clinical file kind.
func ValidFileKind(kind string) bool {
	return kind == FileKindPatients || kind == FileKindSamples
}

// Dataset is a registered collection of clinical files. The ID is a UUID
// assigned at creation time.
type Dataset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// DatasetFile is one uploaded clinical file recorded in the manifest.
type DatasetFile struct {
	ID         int       `json:"id"`
	DatasetID  string    `json:"dataset_id"`
	Kind       string    `json:"kind"`
	Filename   string    `json:"filename"`
	RowCount   int       `json:"row_count"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// CountResult is the response payload for a record count query.
type CountResult struct {
	DatasetID string `json:"dataset_id"`
	Table     string `json:"table"`
	Mode      string `json:"mode"`
	Count     int64  `json:"count"`
}
