package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/newsdesk/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// embedBatchSize is the number of texts sent per embeddings request.
const embedBatchSize = 256

// Embedder implements ai.Embedder over an OpenAI-compatible embeddings API.
type Embedder struct {
	embedder embeddings.Embedder
	model    string
	logger   *slog.Logger
}

func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(token(config)),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(embedBatchSize),
	)
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		model:    config.EmbeddingModel,
		logger:   slog.Default().With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates an embedder for config.EmbeddingModel.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText embeds a single query or passage.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("failed to generate embedding", "length", len(text), "err", err)
		return nil, err
	}
	return vector, nil
}

// EmbedTexts embeds texts in order. The result has one vector per text.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	e.logger.Debug("generating embeddings", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%s returned %d embeddings for %d texts", e.model, len(vectors), len(texts))
	}
	return vectors, nil
}

// token returns the API key, or "none" for local servers without authentication.
func token(config *ai.Config) string {
	if config.APIKey == "" {
		return "none"
	}
	return config.APIKey
}
