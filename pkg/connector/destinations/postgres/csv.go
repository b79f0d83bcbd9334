package postgres

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/ajitpratap0/nebula-ingest/pkg/json"
	"github.com/ajitpratap0/nebula-ingest/pkg/schema"
)

// csvField renders one value for COPY ... (FORMAT CSV). Nulls become the
// empty unquoted field. Strings are quoted only when they contain a comma,
// quote or line break. Arrays and objects are always quoted JSON.
func csvField(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return quoteIfNeeded(t), nil
	case bool:
		return strconv.FormatBool(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case int:
		return strconv.Itoa(t), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case []any, map[string]any:
		s, err := json.MarshalString(t)
		if err != nil {
			return "", err
		}
		return quote(s), nil
	default:
		s, err := json.MarshalString(t)
		if err != nil {
			return "", err
		}
		return quoteIfNeeded(s), nil
	}
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, ",\"\n\r") {
		return quote(s)
	}
	return s
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// writeRows writes one CSV line per row with values in column order.
func writeRows(w io.Writer, cols []schema.Column, rows []map[string]any) (int64, error) {
	var line bytes.Buffer
	var n int64
	for _, row := range rows {
		line.Reset()
		for i, c := range cols {
			if i > 0 {
				line.WriteByte(',')
			}
			field, err := csvField(row[c.Source])
			if err != nil {
				return n, err
			}
			line.WriteString(field)
		}
		line.WriteByte('\n')
		if _, err := w.Write(line.Bytes()); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
