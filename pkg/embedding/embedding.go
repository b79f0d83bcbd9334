// Package embedding generates vector embeddings for text fields.
package embedding

import (
	"context"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/logger"
)

// DefaultModel is the OpenAI embedding model used when none is configured.
const DefaultModel = "text-embedding-3-small"

// Provider turns texts into vectors, one per input text in order.
// An empty input yields an empty result without any remote call.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAI is a Provider backed by the OpenAI embeddings API.
type OpenAI struct {
	embedder embeddings.Embedder
	logger   *zap.Logger
}

// NewOpenAI creates an OpenAI provider. An empty model uses DefaultModel.
func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "embedding API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create OpenAI client")
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create embedder")
	}

	return newOpenAI(embedder), nil
}

func newOpenAI(e embeddings.Embedder) *OpenAI {
	return &OpenAI{
		embedder: e,
		logger:   logger.With(zap.String("component", "openai-embedder")),
	}
}

// Embed implements Provider.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	o.logger.Debug("generating embeddings", zap.Int("count", len(texts)))
	vectors, err := o.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		o.logger.Error("failed to generate embeddings", zap.Int("count", len(texts)), zap.Error(err))
		return nil, errors.Wrap(err, errors.ErrorTypeIngestion, "embedding request failed")
	}
	return vectors, nil
}
