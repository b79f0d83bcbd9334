package config

import (
	"strings"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
)

// Defaults applied when the corresponding setting is not provided.
const (
	DefaultCollectionName = "ingested_nc_collection"
	DefaultTableName      = "ingested_data"
	DefaultGraphLabel     = "IngestedData"
	DefaultDatabase       = "scm_db"
	DefaultVectorSize     = 4
	DefaultConcurrency    = 4
	DefaultReportPath     = "ingestion_report.json"
	DefaultLogFile        = "ingestor.log"
)

// IngestorConfig configures one destination adapter.
type IngestorConfig struct {
	// DatabaseURL is the destination address. Required.
	DatabaseURL string `yaml:"database_url" json:"database_url"`
	// CollectionName names the collection, table or vector collection.
	CollectionName string `yaml:"collection_name" json:"collection_name"`
	// VectorSize is the dimension of vector collections.
	VectorSize uint64 `yaml:"vector_size" json:"vector_size"`
	// Mappings renames source fields to destination columns.
	Mappings map[string]string `yaml:"mappings" json:"mappings"`
	// EmbeddingAPIKey enables embedding of EmbedField when set.
	EmbeddingAPIKey string `yaml:"embedding_api_key" json:"-"`
	EmbedField      string `yaml:"embed_field" json:"embed_field"`
	// Relationships are the graph edge rules.
	Relationships []RelationshipRule `yaml:"relationships" json:"relationships"`
	// Database is the document store database name.
	Database string `yaml:"database" json:"database"`
}

// RelationshipRule derives an edge from a record field.
type RelationshipRule struct {
	SourceField      string `yaml:"source_field" json:"source_field"`
	TargetLabel      string `yaml:"target_label" json:"target_label"`
	TargetField      string `yaml:"target_field" json:"target_field"`
	RelationshipType string `yaml:"relationship_type" json:"relationship_type"`
}

// Validate checks that every part of the rule is set.
func (r RelationshipRule) Validate() error {
	switch {
	case strings.TrimSpace(r.SourceField) == "":
		return errors.New(errors.ErrorTypeConfig, "relationship rule: source_field is required")
	case strings.TrimSpace(r.TargetLabel) == "":
		return errors.New(errors.ErrorTypeConfig, "relationship rule: target_label is required")
	case strings.TrimSpace(r.TargetField) == "":
		return errors.New(errors.ErrorTypeConfig, "relationship rule: target_field is required")
	case strings.TrimSpace(r.RelationshipType) == "":
		return errors.New(errors.ErrorTypeConfig, "relationship rule: relationship_type is required")
	}
	return nil
}

// Validate checks the configuration.
func (c *IngestorConfig) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New(errors.ErrorTypeConfig, "database address is required")
	}
	if err := ValidateMappings(c.Mappings); err != nil {
		return err
	}
	for i, r := range c.Relationships {
		if err := r.Validate(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "invalid relationship rule").WithDetail("index", i)
		}
	}
	return nil
}

// Collection returns CollectionName or the given fallback.
func (c *IngestorConfig) Collection(fallback string) string {
	if c.CollectionName != "" {
		return c.CollectionName
	}
	return fallback
}

// VectorDim returns VectorSize or DefaultVectorSize.
func (c *IngestorConfig) VectorDim() uint64 {
	if c.VectorSize > 0 {
		return c.VectorSize
	}
	return DefaultVectorSize
}

// DatabaseName returns Database or DefaultDatabase.
func (c *IngestorConfig) DatabaseName() string {
	if c.Database != "" {
		return c.Database
	}
	return DefaultDatabase
}

// Clone returns a deep copy.
func (c *IngestorConfig) Clone() *IngestorConfig {
	out := *c
	if c.Mappings != nil {
		out.Mappings = make(map[string]string, len(c.Mappings))
		for k, v := range c.Mappings {
			out.Mappings[k] = v
		}
	}
	if c.Relationships != nil {
		out.Relationships = append([]RelationshipRule(nil), c.Relationships...)
	}
	return &out
}
