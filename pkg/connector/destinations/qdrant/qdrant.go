// Package qdrant ingests records into a Qdrant collection, one point per record.
//
// The collection is created on first use with cosine distance. Vectors come
// from the embedding provider when one is configured and the embed field
// holds text; otherwise a constant placeholder vector is stored so the
// payload is still searchable by filter.
package qdrant

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ingest/pkg/config"
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/core"
	"github.com/ajitpratap0/nebula-ingest/pkg/embedding"
	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/logger"
	"github.com/ajitpratap0/nebula-ingest/pkg/metrics"
	"github.com/ajitpratap0/nebula-ingest/pkg/retry"
	"github.com/ajitpratap0/nebula-ingest/pkg/source"
)

const placeholderValue = 0.1

// Adapter is the Qdrant destination.
type Adapter struct {
	store      pointStore
	provider   embedding.Provider
	collection string
	size       uint64
	embedField string
	policy     retry.Policy
	logger     *zap.Logger

	ensureMu sync.Mutex
	ensured  bool
}

var _ core.Adapter = (*Adapter)(nil)

// New connects to Qdrant and lists collections to verify connectivity.
// An embedding provider is configured when cfg.EmbeddingAPIKey is set.
func New(ctx context.Context, cfg *config.IngestorConfig) (core.Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := newClientStore(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	var provider embedding.Provider
	if cfg.EmbeddingAPIKey != "" {
		p, err := embedding.NewOpenAI(cfg.EmbeddingAPIKey, "")
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		provider = p
	}

	a := newAdapter(cfg, st, provider, retry.DefaultPolicy())
	if err := retry.Run(ctx, a.policy, st.Ping, nil); err != nil {
		_ = st.Close()
		return nil, err
	}
	a.logger.Info("connected to Qdrant", zap.Bool("embeddings", provider != nil))
	return a, nil
}

func newAdapter(cfg *config.IngestorConfig, st pointStore, provider embedding.Provider, policy retry.Policy) *Adapter {
	coll := cfg.Collection(config.DefaultCollectionName)
	return &Adapter{
		store:      st,
		provider:   provider,
		collection: coll,
		size:       cfg.VectorDim(),
		embedField: cfg.EmbedField,
		policy:     policy,
		logger:     logger.With(zap.String("destination", core.KindQdrant), zap.String("collection", coll)),
	}
}

// ensureCollection creates the collection unless it exists and is green.
// Success is remembered for the lifetime of the adapter.
func (a *Adapter) ensureCollection(ctx context.Context) error {
	a.ensureMu.Lock()
	defer a.ensureMu.Unlock()
	if a.ensured {
		return nil
	}

	ready, err := retry.Do(ctx, a.policy, func(ctx context.Context) (bool, error) {
		return a.store.CollectionReady(ctx, a.collection)
	}, nil)
	if err != nil {
		return err
	}

	if !ready {
		err = retry.Run(ctx, a.policy, func(ctx context.Context) error {
			return a.store.CreateCollection(ctx, a.collection, a.size)
		}, nil)
		switch {
		case err == nil:
			a.logger.Info("created collection", zap.Uint64("vector_size", a.size))
		case strings.Contains(strings.ToLower(err.Error()), "already exists"):
			// Another process created it first.
		default:
			return err
		}
	}

	a.ensured = true
	return nil
}

// Ingest upserts one point per record.
func (a *Adapter) Ingest(ctx context.Context, unit source.Unit) error {
	if err := a.ensureCollection(ctx); err != nil {
		return err
	}

	var n int
	switch u := unit.(type) {
	case *source.Tabular:
		for _, row := range u.Rows {
			if err := a.ingestRecord(ctx, row); err != nil {
				return err
			}
			n++
		}
	case *source.Stream:
		for rec, err := range u.Records {
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeIngestion, "failed to read stream record")
			}
			if err := a.ingestRecord(ctx, rec); err != nil {
				return err
			}
			n++
		}
	default:
		doc, err := source.EnvelopeDocument(unit)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeIngestion, "failed to serialize unit")
		}
		if err := a.ingestRecord(ctx, doc); err != nil {
			return err
		}
		n = 1
	}

	metrics.RecordsWritten.WithLabelValues(core.KindQdrant).Add(float64(n))
	logger.WithContext(ctx).Info("ingested unit", zap.String("kind", unit.Kind()), zap.Int("points", n))
	return nil
}

func (a *Adapter) ingestRecord(ctx context.Context, record any) error {
	obj, ok := record.(map[string]any)
	if !ok {
		return errors.Newf(errors.ErrorTypeIngestion, "record must be an object, got %T", record)
	}

	vector, err := a.vectorFor(ctx, obj)
	if err != nil {
		return err
	}

	p := point{
		ID:      uuid.NewString(),
		Vector:  vector,
		Payload: obj,
	}
	return retry.Run(ctx, a.policy, func(ctx context.Context) error {
		return a.store.Upsert(ctx, a.collection, p)
	}, nil)
}

func (a *Adapter) vectorFor(ctx context.Context, obj map[string]any) ([]float32, error) {
	text, isText := obj[a.embedField].(string)
	if a.provider == nil || a.embedField == "" || !isText {
		return constant(a.size, placeholderValue), nil
	}

	vectors, err := a.provider.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return constant(a.size, 0), nil
	}
	return vectors[0], nil
}

func constant(size uint64, v float32) []float32 {
	out := make([]float32, size)
	for i := range out {
		out[i] = v
	}
	return out
}

// Close implements core.Adapter.
func (a *Adapter) Close(context.Context) error {
	return a.store.Close()
}
