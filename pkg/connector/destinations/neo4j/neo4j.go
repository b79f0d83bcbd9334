// Package neo4j ingests records into Neo4j as merged nodes, optionally linked
// to other nodes by relationship rules.
//
// Every record becomes one node (label {_id}) where _id is the record's id,
// ID or uuid field, or a content hash when none is present. Merges are
// idempotent, so re-ingesting a record updates the existing node.
package neo4j

import (
	"context"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ingest/pkg/config"
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/core"
	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/json"
	"github.com/ajitpratap0/nebula-ingest/pkg/logger"
	"github.com/ajitpratap0/nebula-ingest/pkg/metrics"
	"github.com/ajitpratap0/nebula-ingest/pkg/retry"
	"github.com/ajitpratap0/nebula-ingest/pkg/source"
)

// identityFields are checked in order for a record's identity.
var identityFields = []string{"id", "ID", "uuid"}

// Adapter is the Neo4j destination.
type Adapter struct {
	writer graphWriter
	label  string
	rules  []config.RelationshipRule
	policy retry.Policy
	logger *zap.Logger
}

var _ core.Adapter = (*Adapter)(nil)

// New connects to Neo4j and verifies connectivity, retrying transient failures.
func New(ctx context.Context, cfg *config.IngestorConfig) (core.Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w, err := newDriverWriter(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	a := newAdapter(cfg, w, retry.DefaultPolicy())
	if err := retry.Run(ctx, a.policy, w.VerifyConnectivity, nil); err != nil {
		_ = w.Close(ctx)
		return nil, err
	}
	a.logger.Info("connected to Neo4j", zap.Int("relationship_rules", len(a.rules)))
	return a, nil
}

func newAdapter(cfg *config.IngestorConfig, w graphWriter, policy retry.Policy) *Adapter {
	cfg = cfg.Clone()
	label := cfg.Collection(config.DefaultGraphLabel)
	return &Adapter{
		writer: w,
		label:  label,
		rules:  cfg.Relationships,
		policy: policy,
		logger: logger.With(zap.String("destination", core.KindNeo4j), zap.String("label", label)),
	}
}

// Ingest merges every record of the unit. Tabular rows and stream records are
// records; any other unit is merged as its envelope.
func (a *Adapter) Ingest(ctx context.Context, unit source.Unit) error {
	var n int
	switch u := unit.(type) {
	case *source.Tabular:
		for _, row := range u.Rows {
			if err := a.ingestRecord(ctx, row); err != nil {
				return err
			}
			n++
		}
	case *source.Stream:
		for rec, err := range u.Records {
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeIngestion, "failed to read stream record")
			}
			if err := a.ingestRecord(ctx, rec); err != nil {
				return err
			}
			n++
		}
	default:
		doc, err := source.EnvelopeDocument(unit)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeIngestion, "failed to serialize unit")
		}
		if err := a.ingestRecord(ctx, doc); err != nil {
			return err
		}
		n = 1
	}

	metrics.RecordsWritten.WithLabelValues(core.KindNeo4j).Add(float64(n))
	logger.WithContext(ctx).Info("ingested unit", zap.String("kind", unit.Kind()), zap.Int("records", n))
	return nil
}

func (a *Adapter) ingestRecord(ctx context.Context, record any) error {
	obj, ok := record.(map[string]any)
	if !ok {
		return errors.Newf(errors.ErrorTypeIngestion, "record must be an object, got %T", record)
	}

	data, err := json.MarshalString(obj)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIngestion, "failed to serialize record")
	}
	id, err := identity(obj, data)
	if err != nil {
		return err
	}
	props, err := properties(obj)
	if err != nil {
		return err
	}

	err = retry.Run(ctx, a.policy, func(ctx context.Context) error {
		return a.writer.MergeNode(ctx, a.label, id, props, data)
	}, nil)
	if err != nil {
		return err
	}

	for _, rule := range a.rules {
		v, present := obj[rule.SourceField]
		if !present || v == nil {
			continue
		}
		targetID, err := stringify(v)
		if err != nil {
			return err
		}
		err = retry.Run(ctx, a.policy, func(ctx context.Context) error {
			return a.writer.MergeEdge(ctx, a.label, id, rule, targetID)
		}, nil)
		if err != nil {
			return err
		}
	}
	return nil
}

// identity returns the node key for a record: the first identity field
// rendered as JSON with quotes removed, or a hash of the serialized record.
// Distinct records without an identity field can collide on the hash.
func identity(obj map[string]any, serialized string) (string, error) {
	for _, f := range identityFields {
		if v, ok := obj[f]; ok {
			return stringify(v)
		}
	}
	return strconv.FormatUint(xxh3.HashString(serialized), 10), nil
}

func stringify(v any) (string, error) {
	s, err := json.MarshalString(v)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeIngestion, "failed to serialize identity")
	}
	return strings.ReplaceAll(s, `"`, ""), nil
}

// properties converts a record into node properties. Scalars and homogeneous
// scalar lists are kept, nested values become JSON strings and nulls are dropped.
func properties(obj map[string]any) (map[string]any, error) {
	props := make(map[string]any, len(obj))
	for k, v := range obj {
		switch t := v.(type) {
		case nil:
			continue
		case string, bool, int64, float64, int:
			props[k] = t
		case []any:
			if isScalarList(t) {
				props[k] = t
				continue
			}
			s, err := json.MarshalString(t)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeIngestion, "failed to serialize property").WithDetail("field", k)
			}
			props[k] = s
		default:
			s, err := json.MarshalString(t)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeIngestion, "failed to serialize property").WithDetail("field", k)
			}
			props[k] = s
		}
	}
	return props, nil
}

func isScalarList(list []any) bool {
	kind := ""
	for _, e := range list {
		var k string
		switch e.(type) {
		case string:
			k = "string"
		case bool:
			k = "bool"
		case int64, int:
			k = "int"
		case float64:
			k = "float"
		default:
			return false
		}
		if kind != "" && k != kind {
			return false
		}
		kind = k
	}
	return true
}

// Close implements core.Adapter.
func (a *Adapter) Close(ctx context.Context) error {
	return a.writer.Close(ctx)
}
