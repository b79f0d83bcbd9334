// Package nebulaingest loads semi-structured files into PostgreSQL, MongoDB,
// Neo4j, Qdrant or SQLite through one adapter contract.
//
// # Architecture
//
// A run has three parts:
//
//  1. The reader (pkg/reader) turns each file into a source unit: rows with an
//     inferred schema, a lazy record stream, or an opaque value.
//  2. The controller (internal/pipeline) admits at most N files at a time and
//     records every outcome in a result registry that produces the run report.
//  3. A destination adapter (pkg/connector/destinations/...) writes units. Each
//     network call goes through the retry policy (pkg/retry), which retries
//     transient failures with exponential backoff and returns permanent ones
//     immediately.
//
// # Quick Start
//
//	ingest sqlite --db-path ./out.db -p ./data --report
//	ingest postgres --uri postgres://localhost/app -p ./data -c 8 --map name:full_name
//	ingest neo4j -p people.jsonl --relationships '[{"source_field":"likes",
//	    "target_label":"Thing","target_field":"name","relationship_type":"LIKES"}]'
//
// Destination addresses fall back to MONGO_URI, NEO4J_URI, PG_URI, QDRANT_URI
// and SQLITE_DB_PATH. A .env file in the working directory is loaded first.
//
// # Strict Mode
//
// With --strict the first failure stops new files from starting. Files already
// running finish, the report is written and the command exits non-zero.
package nebulaingest
