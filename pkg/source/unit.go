// Package source defines the units of source data handed to destination adapters.
//
// A Unit has exactly one of three shapes. Tabular carries rows with an
// optional inferred schema, Stream carries a lazy sequence of records that can
// be consumed once, and Opaque carries any other decoded value.
package source

import (
	"iter"
	"sync/atomic"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/schema"
)

// ErrStreamConsumed is yielded when a Stream is iterated a second time.
var ErrStreamConsumed = errors.New(errors.ErrorTypeData, "stream already consumed")

// Unit is one discrete piece of source data.
type Unit interface {
	// Kind returns "tabular", "stream" or "opaque".
	Kind() string
	sealed()
}

// Tabular is a set of rows. Schema is nil when no schema was inferred.
type Tabular struct {
	Schema map[string]schema.InferredType
	Rows   []map[string]any
}

func (*Tabular) Kind() string { return "tabular" }
func (*Tabular) sealed()      {}

// Stream is a lazy, finite sequence of records. Each element is either a
// record or the error that prevented reading it.
type Stream struct {
	Records iter.Seq2[any, error]
}

func (*Stream) Kind() string { return "stream" }
func (*Stream) sealed()      {}

// NewStream wraps seq so that it can only be iterated once. Later iterations
// yield ErrStreamConsumed.
func NewStream(seq iter.Seq2[any, error]) *Stream {
	var used atomic.Bool
	return &Stream{
		Records: func(yield func(any, error) bool) {
			if !used.CompareAndSwap(false, true) {
				yield(nil, ErrStreamConsumed)
				return
			}
			seq(yield)
		},
	}
}

// StreamOf returns a single-use stream over fixed records.
func StreamOf(records ...any) *Stream {
	return NewStream(func(yield func(any, error) bool) {
		for _, r := range records {
			if !yield(r, nil) {
				return
			}
		}
	})
}

// Opaque is any decoded value that is neither tabular nor a stream.
type Opaque struct {
	Value any
}

func (*Opaque) Kind() string { return "opaque" }
func (*Opaque) sealed()      {}
