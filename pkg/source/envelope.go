package source

import (
	"fmt"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/json"
	"github.com/ajitpratap0/nebula-ingest/pkg/schema"
)

type tabularEnvelope struct {
	Kind   string                         `json:"kind"`
	Schema map[string]schema.InferredType `json:"schema"`
	Rows   []map[string]any               `json:"rows"`
}

type streamEnvelope struct {
	Kind    string `json:"kind"`
	Records []any  `json:"records"`
}

type opaqueEnvelope struct {
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

// EnvelopeJSON serializes a unit into its tagged JSON envelope. Streams are
// drained, so a stream unit cannot be used afterwards.
func EnvelopeJSON(u Unit) ([]byte, error) {
	var v any
	switch t := u.(type) {
	case *Tabular:
		rows := t.Rows
		if rows == nil {
			rows = []map[string]any{}
		}
		v = tabularEnvelope{Kind: t.Kind(), Schema: t.Schema, Rows: rows}
	case *Stream:
		records, err := Collect(t)
		if err != nil {
			return nil, err
		}
		v = streamEnvelope{Kind: t.Kind(), Records: records}
	case *Opaque:
		v = opaqueEnvelope{Kind: t.Kind(), Value: t.Value}
	default:
		return nil, errors.Newf(errors.ErrorTypeInternal, "unsupported unit type %T", u)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to serialize unit")
	}
	return data, nil
}

// EnvelopeDocument returns the envelope as a generic document.
func EnvelopeDocument(u Unit) (map[string]any, error) {
	data, err := EnvelopeJSON(u)
	if err != nil {
		return nil, err
	}
	v, err := json.DecodeValue(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to decode envelope")
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New(errors.ErrorTypeInternal, fmt.Sprintf("envelope decoded to %T", v))
	}
	return doc, nil
}

// Collect drains a stream. The first record error aborts collection.
func Collect(s *Stream) ([]any, error) {
	records := []any{}
	for rec, err := range s.Records {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
