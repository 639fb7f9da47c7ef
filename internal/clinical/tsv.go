// Package clinical parses tab-delimited clinical data files and loads
// them into the warehouse. Files follow the usual clinical-study layout:
// optional #-prefixed metadata lines, one header row naming attribute
// columns, then one record per line.
package clinical

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidFile marks client-correctable problems with an uploaded file
// (missing required columns, ragged rows, empty identifiers). Handlers
// map it to a 400 response.
var ErrInvalidFile = errors.New("invalid clinical file")

// Required identifier columns per file kind.
const (
	ColumnPatientID = "PATIENT_ID"
	ColumnSampleID  = "SAMPLE_ID"
)

// Table is a parsed tab-delimited clinical file.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// ParseTSV reads a tab-delimited clinical file. Metadata lines starting
// with '#' and blank lines are skipped; every record must have exactly as
// many fields as the header.
func ParseTSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidFile)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrInvalidFile, err)
	}

	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
		if cols[i] == "" {
			return nil, fmt.Errorf("%w: empty column name at position %d", ErrInvalidFile, i+1)
		}
	}

	t := &Table{Columns: cols}
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidFile, line, err)
		}
		if isBlank(record) {
			continue
		}
		row := make(map[string]string, len(cols))
		for i, col := range cols {
			row[col] = strings.TrimSpace(record[i])
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// HasColumn reports whether the table header names col.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// requireColumns validates that every named column is present.
func (t *Table) requireColumns(cols ...string) error {
	for _, col := range cols {
		if !t.HasColumn(col) {
			return fmt.Errorf("%w: missing required column %s", ErrInvalidFile, col)
		}
	}
	return nil
}
