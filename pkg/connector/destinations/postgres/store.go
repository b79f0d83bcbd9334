package postgres

import (
	"context"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
)

// maxConns bounds the pool shared by all tasks of a run.
const maxConns = 16

// store is the slice of PostgreSQL the adapter needs.
type store interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) error
	// CopyFrom streams CSV data from r into the COPY statement sql.
	CopyFrom(ctx context.Context, sql string, r io.Reader) (int64, error)
	Close()
}

type poolStore struct {
	pool *pgxpool.Pool
}

func newPoolStore(ctx context.Context, dsn string) (*poolStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid PostgreSQL URI")
	}

	poolConfig.MaxConns = maxConns
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create PostgreSQL pool")
	}
	return &poolStore{pool: pool}, nil
}

func (s *poolStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to get client from pool")
	}
	return nil
}

func (s *poolStore) Exec(ctx context.Context, sql string, args ...any) error {
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return errors.Wrap(err, errors.ErrorTypeDatabase, "statement failed")
	}
	return nil
}

func (s *poolStore) CopyFrom(ctx context.Context, sql string, r io.Reader) (int64, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeConnection, "failed to acquire connection")
	}
	defer conn.Release()

	tag, err := conn.Conn().PgConn().CopyFrom(ctx, r, sql)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeDatabase, "COPY failed")
	}
	return tag.RowsAffected(), nil
}

func (s *poolStore) Close() {
	s.pool.Close()
}
