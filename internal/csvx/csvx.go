// Package csvx provides lenient CSV access for the compiler and its
// surfaces: header-only reads for column inference and bounded previews.
//
// Readers tolerate variable field counts and skip malformed rows instead of
// aborting, matching the read options the generated programs use.
package csvx

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadHeader reads the column names of a delimited file, skipping the first
// skip rows before the header. Only the header row is parsed; data rows are
// never read.
func ReadHeader(path string, skip int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := newLenientReader(f)
	for i := 0; i < skip; i++ {
		if _, err := r.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%s: file ends before header (skip %d)", path, skip)
			}
			// Malformed skipped rows are tolerated; they are discarded anyway.
			continue
		}
	}

	header, err := readRecordSkippingBad(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read header from %s: %w", path, err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}
	return columns, nil
}

// Preview is a bounded view of a delimited file.
type Preview struct {
	Columns   []string            `json:"columns"`
	Rows      []map[string]string `json:"rows"`
	TotalRows int                 `json:"total_rows"`
}

// ReadPreview reads the header and up to maxRows data rows. Missing or empty
// cells are rendered as the literal "NaN" so previews match the engine's
// notion of missing values. The scan continues past maxRows so TotalRows
// counts every well-formed data row in the file.
func ReadPreview(path string, maxRows int) (*Preview, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := newLenientReader(f)
	header, err := readRecordSkippingBad(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read header from %s: %w", path, err)
	}

	p := &Preview{Columns: make([]string, len(header))}
	for i, h := range header {
		p.Columns[i] = strings.TrimSpace(h)
	}

	for {
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			continue // skip malformed row
		}
		p.TotalRows++
		if len(p.Rows) >= maxRows {
			continue
		}
		row := make(map[string]string, len(p.Columns))
		for i, col := range p.Columns {
			if i < len(record) && strings.TrimSpace(record[i]) != "" {
				row[col] = record[i]
			} else {
				row[col] = "NaN"
			}
		}
		p.Rows = append(p.Rows, row)
	}
	return p, nil
}

func newLenientReader(f *os.File) *csv.Reader {
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r
}

// readRecordSkippingBad reads the next well-formed record.
func readRecordSkippingBad(r *csv.Reader) ([]string, error) {
	for {
		record, err := r.Read()
		if err == nil {
			return record, nil
		}
		if errors.Is(err, io.EOF) {
			return nil, err
		}
	}
}
