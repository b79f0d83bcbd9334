// Package sqlite ingests source units into an embedded SQLite database.
//
// All writes go through one exclusive connection guarded by a mutex, so
// concurrent tasks are serialized at this adapter.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

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

const driverSqlite = "sqlite"

// Adapter is the SQLite destination.
type Adapter struct {
	db      *sql.DB
	mu      sync.Mutex
	conn    *sql.Conn
	builder *schema.Builder
	table   string
	policy  retry.Policy
	logger  *zap.Logger
}

var _ core.Adapter = (*Adapter)(nil)

// New opens the database file named by cfg.DatabaseURL. A leading
// "sqlite://" is accepted and removed.
func New(ctx context.Context, cfg *config.IngestorConfig) (core.Adapter, error) {
	a, err := open(ctx, cfg, retry.DefaultPolicy())
	if err != nil {
		return nil, err
	}
	return a, nil
}

func open(ctx context.Context, cfg *config.IngestorConfig, policy retry.Policy) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()
	path := strings.TrimPrefix(cfg.DatabaseURL, "sqlite://")

	db, err := sql.Open(driverSqlite, path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to open database")
	}
	db.SetMaxOpenConns(1)

	conn, err := retry.Do(ctx, policy, func(ctx context.Context) (*sql.Conn, error) {
		c, err := db.Conn(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to SQLite")
		}
		if err := c.PingContext(ctx); err != nil {
			c.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to SQLite")
		}
		return c, nil
	}, nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeDatabase, "failed to configure SQLite")
	}

	a := &Adapter{
		db:      db,
		conn:    conn,
		builder: schema.NewBuilder(schema.SQLite, cfg.Mappings),
		table:   cfg.Collection(config.DefaultTableName),
		policy:  policy,
		logger:  logger.With(zap.String("destination", core.KindSQLite), zap.String("path", path)),
	}
	a.logger.Info("opened SQLite database", zap.String("table", a.table))
	return a, nil
}

// Ingest implements core.Adapter.
func (a *Adapter) Ingest(ctx context.Context, unit source.Unit) error {
	a.mu.Lock()
	defer a.mu.Unlock()

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

	metrics.RecordsWritten.WithLabelValues(core.KindSQLite).Add(float64(n))
	logger.WithContext(ctx).Info("ingested unit", zap.String("kind", unit.Kind()), zap.Int64("rows", n))
	return nil
}

func (a *Adapter) exec(ctx context.Context, query string, args ...any) error {
	return retry.Run(ctx, a.policy, func(ctx context.Context) error {
		if _, err := a.conn.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrap(err, errors.ErrorTypeDatabase, "statement failed")
		}
		return nil
	}, nil)
}

// inTx runs fn in a transaction with a prepared statement. The transaction is
// rolled back when fn fails.
func (a *Adapter) inTx(ctx context.Context, query string, fn func(stmt *sql.Stmt) (int64, error)) (int64, error) {
	tx, err := a.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeDatabase, "failed to begin transaction")
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return 0, errors.Wrap(err, errors.ErrorTypeDatabase, "failed to prepare insert")
	}
	n, err := fn(stmt)
	stmt.Close()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeDatabase, "failed to commit")
	}
	return n, nil
}

func (a *Adapter) ingestTabular(ctx context.Context, u *source.Tabular) (int64, error) {
	if err := a.exec(ctx, a.builder.BuildCreateTable(a.table, u.Schema)); err != nil {
		return 0, err
	}

	cols := a.builder.Columns(u.Schema)
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("?%d", i+1)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.QuoteTable(a.table), a.builder.QuotedNames(cols), strings.Join(placeholders, ", "))

	// The transaction either commits every row or none, so it can be retried whole.
	return retry.Do(ctx, a.policy, func(ctx context.Context) (int64, error) {
		return a.inTx(ctx, insert, func(stmt *sql.Stmt) (int64, error) {
			var n int64
			for _, row := range u.Rows {
				args := make([]any, len(cols))
				for i, c := range cols {
					v, err := toSQL(row[c.Source])
					if err != nil {
						return n, err
					}
					args[i] = v
				}
				if _, err := stmt.ExecContext(ctx, args...); err != nil {
					return n, errors.Wrap(err, errors.ErrorTypeDatabase, "insert failed")
				}
				n++
			}
			return n, nil
		})
	}, nil)
}

func (a *Adapter) ensureGenericTable(ctx context.Context) error {
	return a.exec(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT, data TEXT NOT NULL)",
		schema.QuoteTable(a.table)))
}

func (a *Adapter) genericInsert() string {
	return fmt.Sprintf("INSERT INTO %s (data) VALUES (?1)", schema.QuoteTable(a.table))
}

// ingestStream inserts each record's JSON in one transaction. The stream is
// single-use, so it is not retried.
func (a *Adapter) ingestStream(ctx context.Context, s *source.Stream) (int64, error) {
	if err := a.ensureGenericTable(ctx); err != nil {
		return 0, err
	}

	return a.inTx(ctx, a.genericInsert(), func(stmt *sql.Stmt) (int64, error) {
		var n int64
		for rec, err := range s.Records {
			if err != nil {
				return n, errors.Wrap(err, errors.ErrorTypeIngestion, "failed to read stream record")
			}
			data, err := json.MarshalString(rec)
			if err != nil {
				return n, errors.Wrap(err, errors.ErrorTypeIngestion, "failed to serialize record")
			}
			if _, err := stmt.ExecContext(ctx, data); err != nil {
				return n, errors.Wrap(err, errors.ErrorTypeIngestion, "insert failed")
			}
			n++
		}
		return n, nil
	})
}

func (a *Adapter) ingestBlob(ctx context.Context, unit source.Unit) (int64, error) {
	if err := a.ensureGenericTable(ctx); err != nil {
		return 0, err
	}
	data, err := source.EnvelopeJSON(unit)
	if err != nil {
		return 0, err
	}
	if err := a.exec(ctx, a.genericInsert(), string(data)); err != nil {
		return 0, err
	}
	return 1, nil
}

// toSQL converts a decoded value into a SQLite parameter. Arrays and objects
// are stored as JSON text.
func toSQL(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if t {
			return int64(1), nil
		}
		return int64(0), nil
	case int64, float64, string:
		return t, nil
	case int:
		return int64(t), nil
	default:
		s, err := json.MarshalString(t)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIngestion, "failed to serialize value")
		}
		return s, nil
	}
}

// Close implements core.Adapter.
func (a *Adapter) Close(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	cerr := a.conn.Close()
	if err := a.db.Close(); err != nil {
		return err
	}
	return cerr
}
