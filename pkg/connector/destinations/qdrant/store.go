package qdrant

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
)

const defaultGRPCPort = 6334

// point is one vector with its payload.
type point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// pointStore is the slice of the Qdrant API the adapter uses.
type pointStore interface {
	Ping(ctx context.Context) error
	// CollectionReady reports whether the collection exists and is green.
	CollectionReady(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, size uint64) error
	Upsert(ctx context.Context, collection string, p point) error
	Close() error
}

type clientStore struct {
	client *qdrant.Client
}

// parseAddress turns scheme://[api_key@]host[:port][?api_key=...] into a client config.
func parseAddress(address string) (*qdrant.Config, error) {
	u, err := url.Parse(address)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return nil, errors.Newf(errors.ErrorTypeConfig, "invalid Qdrant URI %q", address)
	}

	port := defaultGRPCPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid Qdrant port")
		}
	}

	apiKey := u.Query().Get("api_key")
	if apiKey == "" && u.User != nil {
		if pw, ok := u.User.Password(); ok {
			apiKey = pw
		} else {
			apiKey = u.User.Username()
		}
	}

	return &qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: apiKey,
		UseTLS: strings.EqualFold(u.Scheme, "https"),
	}, nil
}

func newClientStore(address string) (*clientStore, error) {
	cfg, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create Qdrant client")
	}
	return &clientStore{client: client}, nil
}

// classify treats unavailable and timed-out calls as connection errors.
func classify(err error, msg string) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return errors.Wrap(err, errors.ErrorTypeConnection, msg)
	default:
		return errors.Wrap(err, errors.ErrorTypeDatabase, msg)
	}
}

func (s *clientStore) Ping(ctx context.Context) error {
	if _, err := s.client.ListCollections(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to Qdrant")
	}
	return nil
}

func (s *clientStore) CollectionReady(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, classify(err, "failed to check Qdrant collection")
	}
	if !exists {
		return false, nil
	}
	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return false, classify(err, "failed to get Qdrant collection info")
	}
	return info.GetStatus() == qdrant.CollectionStatus_Green, nil
}

func (s *clientStore) CreateCollection(ctx context.Context, name string, size uint64) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     size,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return classify(err, "failed to create Qdrant collection")
	}
	return nil
}

func (s *clientStore) Upsert(ctx context.Context, collection string, p point) error {
	payload, err := qdrant.TryValueMap(p.Payload)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIngestion, "unsupported payload value")
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		}},
	})
	if err != nil {
		return classify(err, "failed to upsert point to Qdrant")
	}
	return nil
}

func (s *clientStore) Close() error {
	return s.client.Close()
}
