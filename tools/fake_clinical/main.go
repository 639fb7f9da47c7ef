// Fake Clinical Tool writes a pair of tab-delimited clinical files with
// randomized patients and samples, suitable for feeding the upload tool
// during local development.
//
// Usage:
//
//	go run ./tools/fake_clinical -patients=200 -samples-per-patient=3 -out=./testdata
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

var (
	patientCount      = flag.Int("patients", 100, "number of patients")
	samplesPerPatient = flag.Int("samples-per-patient", 2, "samples per patient")
	outDir            = flag.String("out", ".", "output directory")
	seed              = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
)

var (
	sexes       = []string{"F", "M"}
	cancerTypes = []string{"Glioma", "Melanoma", "Breast Carcinoma", "Colorectal Cancer", "NSCLC"}
	sampleTypes = []string{"Primary", "Metastasis", "Recurrence"}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	patientsPath := filepath.Join(*outDir, "data_clinical_patient.txt")
	samplesPath := filepath.Join(*outDir, "data_clinical_sample.txt")

	pf, err := os.Create(patientsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create %s: %v\n", patientsPath, err)
		os.Exit(1)
	}
	defer func() { _ = pf.Close() }()

	sf, err := os.Create(samplesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create %s: %v\n", samplesPath, err)
		os.Exit(1)
	}
	defer func() { _ = sf.Close() }()

	fmt.Fprintf(pf, "#generated %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintln(pf, "PATIENT_ID\tAGE\tSEX")
	fmt.Fprintf(sf, "#generated %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintln(sf, "SAMPLE_ID\tPATIENT_ID\tCANCER_TYPE\tSAMPLE_TYPE")

	for i := 0; i < *patientCount; i++ {
		pid := fmt.Sprintf("P-%s", uuid.NewString()[:8])
		fmt.Fprintf(pf, "%s\t%d\t%s\n", pid, 20+rng.Intn(70), sexes[rng.Intn(len(sexes))])

		for j := 0; j < *samplesPerPatient; j++ {
			sid := fmt.Sprintf("%s-T%02d", pid, j+1)
			fmt.Fprintf(sf, "%s\t%s\t%s\t%s\n",
				sid, pid,
				cancerTypes[rng.Intn(len(cancerTypes))],
				sampleTypes[rng.Intn(len(sampleTypes))])
		}
	}

	fmt.Printf("wrote %s and %s\n", patientsPath, samplesPath)
}
