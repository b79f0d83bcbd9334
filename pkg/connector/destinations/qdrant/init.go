package qdrant

import (
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/core"
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/registry"
)

func init() {
	_ = registry.Register(core.KindQdrant, New, &registry.ConnectorInfo{
		Name:        core.KindQdrant,
		Description: "Qdrant: one point per record, optional OpenAI embeddings",
		AddressEnv:  "QDRANT_URI",
	})
}
