// Package core defines the contract every destination adapter implements.
package core

import (
	"context"

	"github.com/ajitpratap0/nebula-ingest/pkg/config"
	"github.com/ajitpratap0/nebula-ingest/pkg/source"
)

// Destination kinds understood by the registry.
const (
	KindPostgres = "postgres"
	KindMongo    = "mongo"
	KindNeo4j    = "neo4j"
	KindQdrant   = "qdrant"
	KindSQLite   = "sqlite"
)

// Adapter writes source units to one destination store.
//
// An adapter is constructed once per run, before any Ingest call, and is then
// shared by every concurrent task. Implementations must be safe for
// concurrent use.
type Adapter interface {
	// Ingest writes one unit. Each unit is read once.
	Ingest(ctx context.Context, unit source.Unit) error
	// Close releases the adapter's connections.
	Close(ctx context.Context) error
}

// Factory constructs an adapter. Factories verify connectivity before
// returning, so a returned adapter is ready to ingest.
type Factory func(ctx context.Context, cfg *config.IngestorConfig) (Adapter, error)
