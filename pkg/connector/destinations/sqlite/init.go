package sqlite

import (
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/core"
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/registry"
)

func init() {
	_ = registry.Register(core.KindSQLite, New, &registry.ConnectorInfo{
		Name:        core.KindSQLite,
		Description: "SQLite: typed tables through one exclusive connection",
		AddressEnv:  "SQLITE_DB_PATH",
	})
}
