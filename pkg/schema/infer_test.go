package schema

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfer(t *testing.T) {
	rows := []map[string]any{
		{"id": int64(1), "name": "a", "score": int64(3), "tags": []any{"x"}, "note": nil},
		{"id": int64(2), "name": "b", "score": 2.5, "tags": []any{}, "note": "hi"},
		{"id": int64(3), "name": int64(7), "extra": true},
	}

	got := Infer(rows)

	assert.Equal(t, KindInteger, got["id"].Kind)
	assert.Equal(t, KindNumber, got["score"].Kind)
	assert.Equal(t, KindString, got["note"].Kind)
	assert.Equal(t, KindBoolean, got["extra"].Kind)
	assert.Equal(t, "array<string>", got["tags"].String())
	assert.Equal(t, "string|integer", got["name"].String())
	assert.Equal(t, "TEXT", MapType(got["name"], Postgres))
}

func TestInferEmpty(t *testing.T) {
	assert.Nil(t, Infer(nil))
	assert.Equal(t, KindUnknown, InferValues(nil).Kind)
	assert.Equal(t, KindNull, InferValues([]any{nil, nil}).Kind)
}

func TestTypeOfObject(t *testing.T) {
	typ := TypeOf(map[string]any{"b": int64(1), "a": "x"})
	assert.Equal(t, "object{a:string,b:integer}", typ.String())
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Array(Integer()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"array","items":{"type":"integer"}}`, string(data))
}
