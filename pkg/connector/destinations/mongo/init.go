package mongo

import (
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/core"
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/registry"
)

func init() {
	_ = registry.Register(core.KindMongo, New, &registry.ConnectorInfo{
		Name:        core.KindMongo,
		Description: "MongoDB: one envelope document per unit",
		AddressEnv:  "MONGO_URI",
	})
}
