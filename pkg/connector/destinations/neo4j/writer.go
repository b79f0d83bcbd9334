package neo4j

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ajitpratap0/nebula-ingest/pkg/config"
	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
)

// graphWriter performs the two idempotent writes the adapter needs.
type graphWriter interface {
	VerifyConnectivity(ctx context.Context) error
	// MergeNode upserts the node (label {_id: id}) and overwrites its properties.
	MergeNode(ctx context.Context, label, id string, props map[string]any, data string) error
	// MergeEdge ensures the target node and the edge from the source node exist.
	MergeEdge(ctx context.Context, label, sourceID string, rule config.RelationshipRule, targetID string) error
	Close(ctx context.Context) error
}

// quoteIdent backtick-quotes a label, property or relationship type.
func quoteIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

func nodeQuery(label string) string {
	return fmt.Sprintf("MERGE (n:%s {_id: $id}) SET n += $props, n.data = $data", quoteIdent(label))
}

func edgeQuery(label string, rule config.RelationshipRule) string {
	return fmt.Sprintf(
		"MATCH (a:%s {_id: $source_id}) MERGE (b:%s {_id: $target_id}) SET b.%s = $target_id MERGE (a)-[:%s]->(b)",
		quoteIdent(label),
		quoteIdent(rule.TargetLabel),
		quoteIdent(rule.TargetField),
		quoteIdent(rule.RelationshipType),
	)
}

type driverWriter struct {
	driver neo4j.DriverWithContext
}

// newDriverWriter creates a driver for address. Credentials in the URI's
// userinfo become basic auth and are removed from the address the driver sees.
func newDriverWriter(address string) (*driverWriter, error) {
	u, err := url.Parse(address)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf(errors.ErrorTypeConfig, "invalid Neo4j URI %q", redact(address))
	}

	auth := neo4j.NoAuth()
	if u.User != nil {
		password, _ := u.User.Password()
		auth = neo4j.BasicAuth(u.User.Username(), password, "")
		u.User = nil
	}

	driver, err := neo4j.NewDriverWithContext(u.String(), auth)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create Neo4j driver")
	}
	return &driverWriter{driver: driver}, nil
}

func redact(address string) string {
	u, err := url.Parse(address)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}

func (w *driverWriter) VerifyConnectivity(ctx context.Context) error {
	if err := w.driver.VerifyConnectivity(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to Neo4j")
	}
	return nil
}

func (w *driverWriter) run(ctx context.Context, cypher string, params map[string]any) error {
	session := w.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, params)
	if err == nil {
		_, err = res.Consume(ctx)
	}
	if err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	if neo4j.IsConnectivityError(err) || neo4j.IsRetryable(err) {
		return errors.Wrap(err, errors.ErrorTypeConnection, "Neo4j write failed")
	}
	return errors.Wrap(err, errors.ErrorTypeDatabase, "Neo4j write failed")
}

func (w *driverWriter) MergeNode(ctx context.Context, label, id string, props map[string]any, data string) error {
	return w.run(ctx, nodeQuery(label), map[string]any{
		"id":    id,
		"props": props,
		"data":  data,
	})
}

func (w *driverWriter) MergeEdge(ctx context.Context, label, sourceID string, rule config.RelationshipRule, targetID string) error {
	return w.run(ctx, edgeQuery(label, rule), map[string]any{
		"source_id": sourceID,
		"target_id": targetID,
	})
}

func (w *driverWriter) Close(ctx context.Context) error {
	return w.driver.Close(ctx)
}
