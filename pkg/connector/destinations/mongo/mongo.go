// Package mongo ingests source units into MongoDB, one document per unit.
package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ingest/pkg/config"
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/core"
	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/logger"
	"github.com/ajitpratap0/nebula-ingest/pkg/metrics"
	"github.com/ajitpratap0/nebula-ingest/pkg/retry"
	"github.com/ajitpratap0/nebula-ingest/pkg/source"
)

// inserter is the part of a MongoDB collection the adapter writes through.
type inserter interface {
	Ping(ctx context.Context) error
	InsertOne(ctx context.Context, doc map[string]any) error
	Disconnect(ctx context.Context) error
}

type collection struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func (c *collection) Ping(ctx context.Context) error {
	err := c.client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to MongoDB")
	}
	return nil
}

func (c *collection) InsertOne(ctx context.Context, doc map[string]any) error {
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return classify(err, "failed to insert document")
	}
	return nil
}

func (c *collection) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// classify maps driver errors onto the error taxonomy: network failures and
// timeouts are connection errors, everything else is a database error.
func classify(err error, msg string) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return errors.Wrap(err, errors.ErrorTypeConnection, msg)
	}
	return errors.Wrap(err, errors.ErrorTypeDatabase, msg)
}

// Adapter is the MongoDB destination.
type Adapter struct {
	store      inserter
	database   string
	collection string
	policy     retry.Policy
	logger     *zap.Logger
}

var _ core.Adapter = (*Adapter)(nil)

// New connects to MongoDB and pings the admin database, retrying transient failures.
func New(ctx context.Context, cfg *config.IngestorConfig) (core.Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DatabaseURL))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse MongoDB URI")
	}

	dbName := cfg.DatabaseName()
	collName := cfg.Collection(config.DefaultCollectionName)
	store := &collection{
		client: client,
		coll:   client.Database(dbName).Collection(collName),
	}

	a := newAdapter(store, dbName, collName, retry.DefaultPolicy())
	if err := retry.Run(ctx, a.policy, store.Ping, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	a.logger.Info("connected to MongoDB")
	return a, nil
}

func newAdapter(store inserter, database, coll string, policy retry.Policy) *Adapter {
	return &Adapter{
		store:      store,
		database:   database,
		collection: coll,
		policy:     policy,
		logger: logger.With(
			zap.String("destination", core.KindMongo),
			zap.String("database", database),
			zap.String("collection", coll)),
	}
}

// Ingest inserts the unit's envelope as a single document.
func (a *Adapter) Ingest(ctx context.Context, unit source.Unit) error {
	doc, err := source.EnvelopeDocument(unit)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIngestion, "failed to serialize unit to BSON")
	}

	err = retry.Run(ctx, a.policy, func(ctx context.Context) error {
		return a.store.InsertOne(ctx, doc)
	}, nil)
	if err != nil {
		return err
	}

	metrics.RecordsWritten.WithLabelValues(core.KindMongo).Inc()
	logger.WithContext(ctx).Info("ingested unit", zap.String("kind", unit.Kind()))
	return nil
}

// Close implements core.Adapter.
func (a *Adapter) Close(ctx context.Context) error {
	return a.store.Disconnect(ctx)
}
