package reader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/schema"
	"github.com/ajitpratap0/nebula-ingest/pkg/source"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "data.csv", "a,b,c\n1,x,2.5\n2,,true\n")

	unit, err := New().Read(context.Background(), path)
	require.NoError(t, err)

	tab, ok := unit.(*source.Tabular)
	require.True(t, ok)
	assert.Equal(t, []map[string]any{
		{"a": int64(1), "b": "x", "c": 2.5},
		{"a": int64(2), "b": nil, "c": true},
	}, tab.Rows)
	assert.Equal(t, schema.KindInteger, tab.Schema["a"].Kind)
	assert.Equal(t, schema.KindString, tab.Schema["b"].Kind)
	assert.Equal(t, "float|boolean", tab.Schema["c"].String())
}

func TestReadTSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "data.tsv", "name\tage\nann\t30\n")

	unit, err := New().Read(context.Background(), path)
	require.NoError(t, err)

	tab := unit.(*source.Tabular)
	assert.Equal(t, []map[string]any{{"name": "ann", "age": int64(30)}}, tab.Rows)
}

func TestReadJSONLines(t *testing.T) {
	path := writeFile(t, t.TempDir(), "data.jsonl", "{\"id\":1}\n\nnot json\n{\"id\":2}\n")

	unit, err := New().Read(context.Background(), path)
	require.NoError(t, err)

	stream, ok := unit.(*source.Stream)
	require.True(t, ok)

	var records []any
	var failures int
	for rec, err := range stream.Records {
		if err != nil {
			assert.True(t, errors.IsType(err, errors.ErrorTypeData))
			failures++
			continue
		}
		records = append(records, rec)
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, []any{map[string]any{"id": int64(1)}, map[string]any{"id": int64(2)}}, records)
}

func TestReadJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "doc.json", `{"k":[1,2]}`)

	unit, err := New().Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, &source.Opaque{Value: map[string]any{"k": []any{int64(1), int64(2)}}}, unit)
}

func TestReadInvalidJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "doc.json", `{"k":`)

	_, err := New().Read(context.Background(), path)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestReadText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", "one\ntwo")

	unit, err := New().Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, &source.Opaque{Value: map[string]any{
		"content":    "one\ntwo",
		"line_count": int64(2),
		"total_size": int64(7),
	}}, unit)
}

func TestReadMissing(t *testing.T) {
	_, err := New().Read(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "x\n1\n")
	b := writeFile(t, dir, "sub/b.json", "{}")

	files, err := Expand(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	single, err := Expand(a)
	require.NoError(t, err)
	assert.Equal(t, []string{a}, single)

	_, err = Expand(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
