package config

import (
	"fmt"
	"strings"

	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/core"
	"github.com/poiesic/newsdesk/ingestion"
)

func missing(name string) error {
	return fmt.Errorf("%s %w", name, ErrMissingSetting)
}

// Validate checks that every setting the selected provider and backend need
// is present and that enumerated settings hold known values.
func (c *Config) Validate() error {
	if err := c.validateAI(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}

	if _, err := ingestion.ParseDedupPolicy(c.Ingestion.Dedup); err != nil {
		return err
	}
	if _, err := ingestion.ParseMissingLinkPolicy(c.Ingestion.MissingLink); err != nil {
		return err
	}
	switch c.Ingestion.OnFailure {
	case OnFailureContinue, OnFailureAbort:
	default:
		return fmt.Errorf("invalid ingestion.on_failure %q: must be continue or abort", c.Ingestion.OnFailure)
	}
	if c.Ingestion.PerSourceLimit < 0 {
		return fmt.Errorf("invalid ingestion.per_source_limit %d", c.Ingestion.PerSourceLimit)
	}

	if c.Query.Top < 1 {
		return fmt.Errorf("invalid query.top %d: must be positive", c.Query.Top)
	}
	if c.Query.MinScore < 0 || c.Query.MinScore > 1 {
		return fmt.Errorf("invalid query.min_score %v: must be between 0 and 1", c.Query.MinScore)
	}
	if c.Query.DisplayMinScore < 0 || c.Query.DisplayMinScore > 1 {
		return fmt.Errorf("invalid query.display_min_score %v: must be between 0 and 1", c.Query.DisplayMinScore)
	}
	return nil
}

func (c *Config) validateAI() error {
	switch c.AI.Provider {
	case ai.ProviderOpenAI:
		if c.AI.APIKey == "" && strings.Contains(c.AI.Endpoint, "api.openai.com") {
			return missing(EnvOpenAIAPIKey)
		}
		if c.AI.ChatModel == "" {
			return missing(EnvOpenAIChatModel)
		}
		if c.AI.EmbeddingModel == "" {
			return missing(EnvOpenAIEmbeddingModel)
		}
	case ai.ProviderAzure:
		if c.AI.Endpoint == "" {
			return missing(EnvAzureEndpoint)
		}
		if c.AI.APIKey == "" {
			return missing(EnvAzureAPIKey)
		}
		if c.AI.ChatModel == "" {
			return missing(EnvAzureChatModel)
		}
		if c.AI.EmbeddingModel == "" {
			return missing(EnvAzureEmbeddingModel)
		}
	case ai.ProviderOllama:
		if c.AI.Endpoint == "" {
			return missing(EnvOllamaHost)
		}
	default:
		return fmt.Errorf("invalid ai.provider %q: must be openai, azure or ollama", c.AI.Provider)
	}
	if c.AI.EmbeddingCacheSize < CacheDisabled {
		return fmt.Errorf("invalid ai.embedding_cache_size %d: must be %d or more", c.AI.EmbeddingCacheSize, CacheDisabled)
	}
	return nil
}

func (c *Config) validateStore() error {
	strategy, err := core.ParseKeyStrategy(c.Store.KeyStrategy)
	if err != nil {
		return err
	}
	if strategy == core.KeyStrategySequential && (c.Store.Backend == BackendQdrant || c.Store.Backend == BackendCosmos) {
		return fmt.Errorf("invalid store.key_strategy %q: the %s backend has no persistent sequence", strategy, c.Store.Backend)
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendBadger:
		if c.Store.Path == "" && !c.Store.InMemory {
			return missing("store.path")
		}
	case BackendQdrant:
		if c.Store.QdrantHost == "" {
			return missing(EnvQdrantHost)
		}
	case BackendCosmos:
		if c.Store.CosmosConnectionString == "" {
			return missing(EnvCosmosConnString)
		}
	default:
		return fmt.Errorf("invalid store.backend %q: must be memory, badger, qdrant or cosmos", c.Store.Backend)
	}
	return nil
}

// ToAIConfig converts the ai section into a provider configuration.
func (c *Config) ToAIConfig() *ai.Config {
	cacheSize := c.AI.EmbeddingCacheSize
	if cacheSize < 0 {
		cacheSize = 0
	}
	return ai.NewConfig(
		ai.WithProvider(c.AI.Provider),
		ai.WithHost(c.AI.Endpoint),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithChatModel(c.AI.ChatModel),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithEmbeddingCacheSize(cacheSize),
	)
}
