// Package config holds the configuration of an ingestion run.
//
// IngestorConfig is what a destination adapter is built from. It is treated as
// immutable once constructed, and every adapter keeps its own copy. RunConfig
// carries the settings of the run around the adapter: the input path, the
// concurrency bound, strict mode and reporting.
//
// # Profiles
//
// Both structures can be loaded from a YAML profile. ${VAR_NAME} references
// are replaced with environment variable values before parsing:
//
//	destination: postgres
//	path: ./data
//	concurrency: 8
//	ingestor:
//	  database_url: ${PG_URI}
//	  mappings:
//	    user_id: uid
//
//	var profile config.Profile
//	if err := config.Load("ingest.yaml", &profile); err != nil {
//		return err
//	}
//
// # Relationship rules
//
// Graph destinations accept rules as a JSON array:
//
//	[{"source_field":"likes","target_label":"Item","target_field":"name","relationship_type":"LIKES"}]
//
// ParseRelationships treats malformed input as "no rules" and logs a warning.
package config
