// Package destinations links every destination adapter into the binary.
// Importing it registers each adapter with the global registry.
package destinations

import (
	// Registered through init().
	_ "github.com/ajitpratap0/nebula-ingest/pkg/connector/destinations/mongo"
	_ "github.com/ajitpratap0/nebula-ingest/pkg/connector/destinations/neo4j"
	_ "github.com/ajitpratap0/nebula-ingest/pkg/connector/destinations/postgres"
	_ "github.com/ajitpratap0/nebula-ingest/pkg/connector/destinations/qdrant"
	_ "github.com/ajitpratap0/nebula-ingest/pkg/connector/destinations/sqlite"
)
