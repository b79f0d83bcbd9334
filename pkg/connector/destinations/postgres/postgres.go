// Package postgres ingests source units into PostgreSQL.
//
// Tabular units with a schema get a typed table and are loaded with
// COPY ... FROM STDIN in CSV format. Streams are copied record by record into a
// generic (id, data JSONB) table, and everything else is inserted there as one
// JSON envelope.
package postgres

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ingest/pkg/config"
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/core"
	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/json"
	"github.com/ajitpratap0/nebula-ingest/pkg/logger"
	"github.com/ajitpratap0/nebula-ingest/pkg/metrics"
	"github.com/ajitpratap0/nebula-ingest/pkg/retry"
	"github.com/ajitpratap0/nebula-ingest/pkg/schema"
	"github.com/ajitpratap0/nebula-ingest/pkg/source"
)

// Adapter is the PostgreSQL destination.
type Adapter struct {
	cfg     *config.IngestorConfig
	store   store
	builder *schema.Builder
	table   string
	policy  retry.Policy
	logger  *zap.Logger
}

var _ core.Adapter = (*Adapter)(nil)

// New connects to the database named by cfg.DatabaseURL and verifies that a
// connection can be obtained, retrying transient failures.
func New(ctx context.Context, cfg *config.IngestorConfig) (core.Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := newPoolStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	a := newAdapter(cfg, st, retry.DefaultPolicy())
	if err := retry.Run(ctx, a.policy, st.Ping, nil); err != nil {
		st.Close()
		return nil, err
	}
	a.logger.Info("connected to PostgreSQL", zap.String("table", a.table), zap.Int("max_connections", maxConns))
	return a, nil
}

func newAdapter(cfg *config.IngestorConfig, st store, policy retry.Policy) *Adapter {
	cfg = cfg.Clone()
	return &Adapter{
		cfg:     cfg,
		store:   st,
		builder: schema.NewBuilder(schema.Postgres, cfg.Mappings),
		table:   cfg.Collection(config.DefaultTableName),
		policy:  policy,
		logger:  logger.With(zap.String("destination", core.KindPostgres)),
	}
}

// Ingest implements core.Adapter.
func (a *Adapter) Ingest(ctx context.Context, unit source.Unit) error {
	var (
		n   int64
		err error
	)
	switch u := unit.(type) {
	case *source.Tabular:
		if len(u.Schema) > 0 {
			n, err = a.ingestTabular(ctx, u)
		} else {
			n, err = a.ingestBlob(ctx, u)
		}
	case *source.Stream:
		n, err = a.ingestStream(ctx, u)
	default:
		n, err = a.ingestBlob(ctx, unit)
	}
	if err != nil {
		return err
	}

	metrics.RecordsWritten.WithLabelValues(core.KindPostgres).Add(float64(n))
	logger.WithContext(ctx).Info("ingested unit", zap.String("table", a.table), zap.String("kind", unit.Kind()), zap.Int64("rows", n))
	return nil
}

func (a *Adapter) exec(ctx context.Context, sql string, args ...any) error {
	return retry.Run(ctx, a.policy, func(ctx context.Context) error {
		return a.store.Exec(ctx, sql, args...)
	}, nil)
}

func (a *Adapter) ingestTabular(ctx context.Context, u *source.Tabular) (int64, error) {
	if err := a.exec(ctx, a.builder.BuildCreateTable(a.table, u.Schema)); err != nil {
		return 0, err
	}

	cols := a.builder.Columns(u.Schema)
	var buf bytes.Buffer
	if _, err := writeRows(&buf, cols, u.Rows); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeIngestion, "failed to encode rows")
	}

	copySQL := fmt.Sprintf("COPY %s (%s) FROM STDIN (FORMAT CSV, HEADER FALSE)",
		schema.QuoteTable(a.table), a.builder.QuotedNames(cols))

	// A failed COPY commits nothing, so the whole call can be repeated.
	return retry.Do(ctx, a.policy, func(ctx context.Context) (int64, error) {
		return a.store.CopyFrom(ctx, copySQL, bytes.NewReader(buf.Bytes()))
	}, nil)
}

func (a *Adapter) ensureGenericTable(ctx context.Context) error {
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id SERIAL PRIMARY KEY, data JSONB NOT NULL)", schema.QuoteTable(a.table))
	return a.exec(ctx, ddl)
}

// ingestStream copies each record's JSON as one CSV column. The stream can
// only be read once, so the COPY is not retried.
func (a *Adapter) ingestStream(ctx context.Context, s *source.Stream) (int64, error) {
	if err := a.ensureGenericTable(ctx); err != nil {
		return 0, err
	}

	pr, pw := io.Pipe()
	var writeErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		writeErr = writeStream(pw, s)
		pw.CloseWithError(writeErr)
	}()

	copySQL := fmt.Sprintf("COPY %s (data) FROM STDIN (FORMAT CSV, HEADER FALSE)", schema.QuoteTable(a.table))
	n, err := a.store.CopyFrom(ctx, copySQL, pr)
	pr.Close()
	<-done

	// Closing the reader after a failed COPY makes the writer fail with
	// io.ErrClosedPipe; the COPY error is the real cause then.
	if writeErr != nil && !errors.Is(writeErr, io.ErrClosedPipe) {
		return 0, errors.Wrap(writeErr, errors.ErrorTypeIngestion, "failed to read stream record")
	}
	if err != nil {
		return 0, err
	}
	if writeErr != nil {
		return 0, errors.Wrap(writeErr, errors.ErrorTypeIngestion, "failed to read stream record")
	}
	return n, nil
}

func writeStream(w io.Writer, s *source.Stream) error {
	for rec, err := range s.Records {
		if err != nil {
			return err
		}
		data, err := json.MarshalString(rec)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, quote(data)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) ingestBlob(ctx context.Context, unit source.Unit) (int64, error) {
	if err := a.ensureGenericTable(ctx); err != nil {
		return 0, err
	}

	data, err := source.EnvelopeJSON(unit)
	if err != nil {
		return 0, err
	}

	insert := fmt.Sprintf("INSERT INTO %s (data) VALUES ($1)", schema.QuoteTable(a.table))
	if err := a.exec(ctx, insert, string(data)); err != nil {
		return 0, err
	}
	return 1, nil
}

// Close implements core.Adapter.
func (a *Adapter) Close(context.Context) error {
	a.store.Close()
	return nil
}
