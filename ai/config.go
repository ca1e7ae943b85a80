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


package ai

import (
	"errors"
	"strings"
)

// Provider names accepted in Config.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderOllama = "ollama"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Provider selects the implementation: "openai", "azure" or "ollama".
	Provider string

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// ChatHost is the base URL for the chat completion service API.
	ChatHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// For Azure this is the embedding deployment name.
	EmbeddingModel string

	// ChatModel is the model identifier to use for chat completions.
	// For Azure this is the chat deployment name.
	ChatModel string

	// APIKey authenticates against hosted services. Local servers ignore it.
	APIKey string

	// EmbeddingCacheSize is the number of embeddings kept in the in-process
	// LRU cache. Zero disables the cache.
	EmbeddingCacheSize int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the provider name.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithChatHost sets the chat service host URL.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithHost sets both embedding and chat hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ChatHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithChatModel sets the chat model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithEmbeddingCacheSize sets the embedding cache capacity.
func WithEmbeddingCacheSize(size int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingCacheSize = size
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, both embedding and chat use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		Provider:           ProviderOpenAI,
		EmbeddingHost:      defaultHost,
		ChatHost:           defaultHost,
		EmbeddingModel:     "nomic-embed-text",
		ChatModel:          "llama3.2",
		EmbeddingCacheSize: 256,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("text-embedding-3-small"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// For the openai provider it adds the /v1 suffix to hosts if missing, which is
// required by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
// Other providers take the host as given, minus any trailing slash.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Provider != ProviderOpenAI {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
		c.ChatHost = strings.TrimSuffix(c.ChatHost, "/")
		return
	}
	c.EmbeddingHost = withV1(c.EmbeddingHost)
	c.ChatHost = withV1(c.ChatHost)
}

func withV1(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderOpenAI, ProviderAzure, ProviderOllama:
	default:
		return errors.New("ai config: Provider must be one of openai, azure, ollama")
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.ChatHost == "" {
		return errors.New("ai config: ChatHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.Provider == ProviderAzure && c.APIKey == "" {
		return errors.New("ai config: APIKey is required for azure")
	}
	if c.EmbeddingCacheSize < 0 {
		return errors.New("ai config: EmbeddingCacheSize cannot be negative")
	}
	return nil
}
