// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.



package azure

import (
	"log/slog"

	"github.com/poiesic/newsdesk/ai"
)

// Provider implements ai.AIProvider on top of a single Azure OpenAI client.
type Provider struct {
	client   *Client
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewProvider creates a new AI provider for an Azure OpenAI resource.
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
		logger:   slog.Default().With("component", "azure-provider"),
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

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (p *Provider) Close() error {
	p.logger.Debug("closing Azure provider")
	return nil
}
