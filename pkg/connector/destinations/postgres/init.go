package postgres

import (
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/core"
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/registry"
)

func init() {
	_ = registry.Register(core.KindPostgres, New, &registry.ConnectorInfo{
		Name:        core.KindPostgres,
		Description: "PostgreSQL: typed tables loaded with COPY, JSONB fallback table",
		AddressEnv:  "PG_URI",
	})
}
