package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Warning is a non-fatal issue encountered while parsing a row.
// Row numbering: the header is row 0, the first data row is row 1.
type Warning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result holds the parsed table. Rows share the Headers vector; every row
// has exactly len(Headers) fields after padding/truncation.
type Result struct {
	Headers  []string   `json:"headers"`
	Rows     [][]string `json:"rows"`
	Warnings []Warning  `json:"warnings,omitempty"`
	Encoding Encoding   `json:"encoding"`
}

var (
	// ErrEmptyFile means the input had no header row at all.
	ErrEmptyFile = errors.New("empty file: no header row found")
	// ErrNoDataRows means a header was present but every data row was
	// skipped or missing.
	ErrNoDataRows = errors.New("file contains no data rows")
)

// Parse decodes and parses CSV bytes into a Result. Real-world exports are
// messy, so the parser is a best-effort producer rather than a validator:
// lazy quotes are accepted, short rows are padded, long rows are truncated,
// and rows with hard parse errors are skipped. Each recovery emits a
// Warning on the Result.
func Parse(data []byte) (*Result, error) {
	decoded, enc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("encoding decode failed: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(decoded))
	// Variable field counts are handled here, not rejected by the reader.
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	headers, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i, h := range headers {
		headers[i] = trimField(h)
	}

	res := &Result{Headers: headers, Encoding: enc}
	row := 0
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++

		if err != nil {
			res.Warnings = append(res.Warnings, Warning{
				Row:     row,
				Message: fmt.Sprintf("parse error: %v", err),
			})
			continue
		}

		if len(fields) != len(headers) {
			if len(fields) < len(headers) {
				res.Warnings = append(res.Warnings, Warning{
					Row:     row,
					Message: fmt.Sprintf("row %d has %d columns, expected %d; padding with empty values", row, len(fields), len(headers)),
				})
				padded := make([]string, len(headers))
				copy(padded, fields)
				fields = padded
			} else {
				res.Warnings = append(res.Warnings, Warning{
					Row:     row,
					Message: fmt.Sprintf("row %d has %d columns, expected %d; truncating extra columns", row, len(fields), len(headers)),
				})
				fields = fields[:len(headers)]
			}
		}

		for i, f := range fields {
			fields[i] = trimField(f)
		}
		res.Rows = append(res.Rows, fields)
	}

	if len(res.Rows) == 0 {
		return nil, ErrNoDataRows
	}
	return res, nil
}

// trimField strips leading and trailing ASCII whitespace only. Unicode
// spaces inside values are data, not padding.
func trimField(s string) string {
	return strings.Trim(s, " \t\r\n")
}
