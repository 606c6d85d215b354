// Package csvfile reads report records from delimited text with a header row.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/de-tools/report-atlas/pkg/models/domain"
)

type Options struct {
	// Comma is the field delimiter; zero means ','.
	Comma rune
	// Text lists columns kept as strings even when they look numeric.
	Text []string
}

// Read parses every row into a record keyed by the header. Empty cells are
// null, numeric cells become numbers and "true"/"false" become booleans.
func Read(r io.Reader, opts Options) (domain.Records, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return domain.Records{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if header[i] == "" {
			return nil, &domain.DataError{Field: fmt.Sprintf("column %d", i+1), Reason: "header name is empty"}
		}
	}

	text := make(map[string]bool, len(opts.Text))
	for _, c := range opts.Text {
		text[c] = true
	}

	records := make(domain.Records, 0)
	for line := 2; ; line++ {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.DataError{Field: fmt.Sprintf("line %d", line), Reason: "malformed row", Err: err}
		}

		rec := make(domain.Record, len(header))
		for i, name := range header {
			rec[name] = cell(cells[i], text[name])
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string, opts Options) (domain.Records, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}

func cell(raw string, keepText bool) domain.Value {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return domain.NullValue()
	case keepText:
		return domain.StringValue(s)
	case s == "true" || s == "false":
		return domain.BoolValue(s == "true")
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil && domain.IsFinite(n) {
		return domain.NumberValue(n)
	}
	return domain.StringValue(s)
}
