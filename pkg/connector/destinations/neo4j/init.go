package neo4j

import (
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/core"
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/registry"
)

func init() {
	_ = registry.Register(core.KindNeo4j, New, &registry.ConnectorInfo{
		Name:        core.KindNeo4j,
		Description: "Neo4j: merged nodes per record plus rule-driven relationships",
		AddressEnv:  "NEO4J_URI",
	})
}
