// Upload Dataset Tool publishes a pair of tab-delimited clinical files to
// a running clinserve instance as a new dataset.
//
// It performs three sequential HTTP calls against the dataset API: create
// the dataset, upload the patients file, upload the samples file. There is
// no retry or rollback; if a call fails the tool exits non-zero and any
// partially created dataset is left as-is.
//
// Usage:
//
//	go run ./tools/upload_dataset -name=msk-impact-2024 \
//	    -patients=data_clinical_patient.txt -samples=data_clinical_sample.txt
//
// Configuration:
//
//	-api-url: Optional. Base URL of the dataset API (default: http://localhost:8686)
//	-name: Required. Name for the new dataset
//	-description: Optional. Free-text description
//	-patients: Required. Path to the tab-delimited patients file
//	-samples: Required. Path to the tab-delimited samples file
//	-timeout: Optional. Per-request timeout (default: 2m)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/clinsight/clinserve/internal/dataset"
	"github.com/clinsight/clinserve/internal/observability"
)

var (
	apiURL      = flag.String("api-url", "http://localhost:8686", "base URL of the dataset API")
	name        = flag.String("name", "", "name for the new dataset")
	description = flag.String("description", "", "dataset description")
	patients    = flag.String("patients", "", "path to the tab-delimited patients file")
	samples     = flag.String("samples", "", "path to the tab-delimited samples file")
	timeout     = flag.Duration("timeout", 2*time.Minute, "per-request timeout")
)

func main() {
	flag.Parse()

	if *name == "" || *patients == "" || *samples == "" {
		fmt.Fprintln(os.Stderr, "Error: -name, -patients and -samples are required")
		flag.Usage()
		os.Exit(1)
	}

	logger, err := observability.InitLogger("upload-dataset")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	client := dataset.NewClient(*apiURL, *timeout, logger)
	ds, err := client.UploadClinicalData(context.Background(), *name, *description, *patients, *samples)
	if err != nil {
		logger.Error("upload failed", zap.Error(err))
		os.Exit(1)
	}

	fmt.Printf("dataset %s created (%s)\n", ds.ID, ds.Name)
}
