package reader

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/schema"
	"github.com/ajitpratap0/nebula-ingest/pkg/source"
)

// readDelimited reads a headed CSV/TSV file into a Tabular unit.
func readDelimited(path string, comma rune) (source.Unit, error) {
	file, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = comma
	r.FieldsPerRecord = -1
	if comma == '\t' {
		r.LazyQuotes = true
	}

	headers, err := r.Read()
	if stderrors.Is(err, io.EOF) {
		return &source.Tabular{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read header").WithDetail("path", path)
	}
	for i, h := range headers {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i)
		}
		headers[i] = h
	}

	var rows []map[string]any
	for {
		rec, err := r.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "malformed row").WithDetail("path", path)
		}

		row := make(map[string]any, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = parseCell(rec[i])
			} else {
				row[h] = nil
			}
		}
		rows = append(rows, row)
	}

	return &source.Tabular{Schema: schema.Infer(rows), Rows: rows}, nil
}

// parseCell converts a raw cell into the narrowest value it represents.
func parseCell(s string) any {
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
