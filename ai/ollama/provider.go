package ollama

import (
	"github.com/poiesic/newsdesk/ai"
)

// Provider implements ai.AIProvider using an Ollama server.
type Provider struct {
	client   *Client
	embedder ai.Embedder
}

// NewProvider creates a new AI provider for an Ollama server.
//
// Returns ai.AIProvider interface to enforce abstraction.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	client, err := newClient(config)
	if err != nil {
		return nil, err
	}
	return &Provider{
		client:   client,
		embedder: ai.NewCachedEmbedder(client, config.EmbeddingCacheSize),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Chat returns the chat completion service.
func (p *Provider) Chat() ai.ChatClient {
	return p.client
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}
