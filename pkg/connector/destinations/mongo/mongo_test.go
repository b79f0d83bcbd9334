package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-ingest/pkg/config"
	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/retry"
	"github.com/ajitpratap0/nebula-ingest/pkg/schema"
	"github.com/ajitpratap0/nebula-ingest/pkg/source"
)

type fakeCollection struct {
	docs         []map[string]any
	errs         []error
	calls        int
	disconnected bool
}

func (f *fakeCollection) Ping(context.Context) error { return nil }

func (f *fakeCollection) InsertOne(_ context.Context, doc map[string]any) error {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeCollection) Disconnect(context.Context) error {
	f.disconnected = true
	return nil
}

func testPolicy() retry.Policy {
	return retry.DefaultPolicy().WithInterval(time.Millisecond, 2*time.Millisecond).WithMaxElapsed(time.Second)
}

func TestIngestTabularEnvelope(t *testing.T) {
	store := &fakeCollection{}
	a := newAdapter(store, "scm_db", "ingested_nc_collection", testPolicy())

	unit := &source.Tabular{
		Schema: map[string]schema.InferredType{"a": schema.Integer()},
		Rows:   []map[string]any{{"a": int64(1)}},
	}
	require.NoError(t, a.Ingest(context.Background(), unit))

	require.Len(t, store.docs, 1)
	assert.Equal(t, map[string]any{
		"kind":   "tabular",
		"schema": map[string]any{"a": map[string]any{"type": "integer"}},
		"rows":   []any{map[string]any{"a": int64(1)}},
	}, store.docs[0])
}

func TestIngestStreamEnvelope(t *testing.T) {
	store := &fakeCollection{}
	a := newAdapter(store, "db", "c", testPolicy())

	require.NoError(t, a.Ingest(context.Background(), source.StreamOf("a", "b")))
	assert.Equal(t, map[string]any{"kind": "stream", "records": []any{"a", "b"}}, store.docs[0])
}

func TestIngestRetriesTransient(t *testing.T) {
	store := &fakeCollection{errs: []error{errors.New(errors.ErrorTypeConnection, "socket closed"), nil}}
	a := newAdapter(store, "db", "c", testPolicy())

	require.NoError(t, a.Ingest(context.Background(), &source.Opaque{Value: 1}))
	assert.Equal(t, 2, store.calls)
	assert.Len(t, store.docs, 1)
}

func TestIngestPermanentFailure(t *testing.T) {
	store := &fakeCollection{errs: []error{errors.New(errors.ErrorTypeDatabase, "document failed validation")}}
	a := newAdapter(store, "db", "c", testPolicy())

	err := a.Ingest(context.Background(), &source.Opaque{Value: 1})
	require.Error(t, err)
	assert.Equal(t, 1, store.calls)
}

func TestIngestStreamRecordError(t *testing.T) {
	store := &fakeCollection{}
	a := newAdapter(store, "db", "c", testPolicy())

	unit := source.NewStream(func(yield func(any, error) bool) {
		yield(nil, errors.New(errors.ErrorTypeData, "bad line"))
	})

	err := a.Ingest(context.Background(), unit)
	require.Error(t, err)
	assert.Zero(t, store.calls)
}

func TestClose(t *testing.T) {
	store := &fakeCollection{}
	a := newAdapter(store, "db", "c", testPolicy())
	require.NoError(t, a.Close(context.Background()))
	assert.True(t, store.disconnected)
}

func TestNewRejectsEmptyAddress(t *testing.T) {
	_, err := New(context.Background(), &config.IngestorConfig{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
