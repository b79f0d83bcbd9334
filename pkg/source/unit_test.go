package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/schema"
)

func TestStreamSingleUse(t *testing.T) {
	s := StreamOf(int64(1), int64(2))

	first, err := Collect(s)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, first)

	_, err = Collect(s)
	assert.ErrorIs(t, err, ErrStreamConsumed)
}

func TestCollectStopsOnRecordError(t *testing.T) {
	bad := errors.New(errors.ErrorTypeData, "bad line")
	s := NewStream(func(yield func(any, error) bool) {
		if !yield("ok", nil) {
			return
		}
		yield(nil, bad)
	})

	_, err := Collect(s)
	assert.ErrorIs(t, err, bad)
}

func TestEnvelopeJSON(t *testing.T) {
	tests := []struct {
		name string
		unit Unit
		want string
	}{
		{
			name: "tabular",
			unit: &Tabular{
				Schema: map[string]schema.InferredType{"a": schema.Integer()},
				Rows:   []map[string]any{{"a": int64(1)}},
			},
			want: `{"kind":"tabular","schema":{"a":{"type":"integer"}},"rows":[{"a":1}]}`,
		},
		{
			name: "tabular without schema",
			unit: &Tabular{},
			want: `{"kind":"tabular","schema":null,"rows":[]}`,
		},
		{
			name: "stream",
			unit: StreamOf(map[string]any{"x": "y"}),
			want: `{"kind":"stream","records":[{"x":"y"}]}`,
		},
		{
			name: "opaque",
			unit: &Opaque{Value: "hello"},
			want: `{"kind":"opaque","value":"hello"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EnvelopeJSON(tt.unit)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestEnvelopeDocument(t *testing.T) {
	doc, err := EnvelopeDocument(&Opaque{Value: map[string]any{"n": 3}})
	require.NoError(t, err)
	assert.Equal(t, "opaque", doc["kind"])
	assert.Equal(t, map[string]any{"n": int64(3)}, doc["value"])
}
