package config

import (
	"github.com/poiesic/newsdesk/ai"
	"github.com/poiesic/newsdesk/feed"
)

// Default values.
const (
	DefaultNewsCollection     = "news_articles"
	DefaultQueriesCollection  = "user_queries"
	DefaultUserDataCollection = "user_data"
	DefaultFeedbackCollection = "news_top_stories_feedback"
	DefaultTeamCollection     = "memory"
	DefaultQdrantHost         = "localhost:6334"
	DefaultOllamaHost         = "http://localhost:11434"
	DefaultOpenAIHost         = "https://api.openai.com"

	DefaultEmbeddingCacheSize = 256
	// CacheDisabled as ai.embedding_cache_size turns the embedding cache off.
	CacheDisabled = -1
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = ai.ProviderOpenAI
	}
	switch cfg.AI.Provider {
	case ai.ProviderOpenAI:
		if cfg.AI.Endpoint == "" {
			cfg.AI.Endpoint = DefaultOpenAIHost
		}
	case ai.ProviderOllama:
		if cfg.AI.Endpoint == "" {
			cfg.AI.Endpoint = DefaultOllamaHost
		}
		if cfg.AI.ChatModel == "" {
			cfg.AI.ChatModel = "llama3.2"
		}
		if cfg.AI.EmbeddingModel == "" {
			cfg.AI.EmbeddingModel = "nomic-embed-text"
		}
	}
	if cfg.AI.EmbeddingCacheSize == 0 {
		cfg.AI.EmbeddingCacheSize = DefaultEmbeddingCacheSize
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendQdrant
	}
	if cfg.Store.KeyStrategy == "" {
		cfg.Store.KeyStrategy = "hash"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "~/.newsdesk/data"
	}
	if cfg.Store.QdrantHost == "" {
		cfg.Store.QdrantHost = DefaultQdrantHost
	}
	if cfg.Store.CosmosDatabase == "" {
		cfg.Store.CosmosDatabase = "AgentDB"
	}

	if cfg.Collections.News == "" {
		cfg.Collections.News = DefaultNewsCollection
	}
	if cfg.Collections.Queries == "" {
		cfg.Collections.Queries = DefaultQueriesCollection
	}
	if cfg.Collections.UserData == "" {
		cfg.Collections.UserData = DefaultUserDataCollection
	}
	if cfg.Collections.Feedback == "" {
		cfg.Collections.Feedback = DefaultFeedbackCollection
	}
	if cfg.Collections.Team == "" {
		cfg.Collections.Team = DefaultTeamCollection
	}

	if cfg.Ingestion.Dedup == "" {
		cfg.Ingestion.Dedup = "key"
	}
	if cfg.Ingestion.MissingLink == "" {
		cfg.Ingestion.MissingLink = "skip"
	}
	if cfg.Ingestion.OnFailure == "" {
		cfg.Ingestion.OnFailure = OnFailureContinue
	}
	if cfg.Ingestion.PerSourceLimit == 0 {
		cfg.Ingestion.PerSourceLimit = 10
	}
	if cfg.Ingestion.UserAgent == "" {
		cfg.Ingestion.UserAgent = "newsdesk/1.0"
	}

	if cfg.Query.Top == 0 {
		cfg.Query.Top = 3
	}
	if cfg.Query.DisplayMinScore == 0 {
		cfg.Query.DisplayMinScore = 0.8
	}
	if cfg.Query.FactsTop == 0 {
		cfg.Query.FactsTop = 3
	}
	if cfg.Query.HistorySize == 0 {
		cfg.Query.HistorySize = 5
	}
	if cfg.Query.Encoding == "" {
		cfg.Query.Encoding = "cl100k_base"
	}

	if cfg.Reembed.BatchSize == 0 {
		cfg.Reembed.BatchSize = 100
	}
	if cfg.Reembed.MaxRetries == 0 {
		cfg.Reembed.MaxRetries = 3
	}
	if cfg.Reembed.RetryDelayMillis == 0 {
		cfg.Reembed.RetryDelayMillis = 1000
	}

	if cfg.Export.Directory == "" {
		cfg.Export.Directory = "."
	}

	if len(cfg.NewsFeeds) == 0 {
		cfg.NewsFeeds = feed.NewsFeeds()
	}
	if len(cfg.BlogFeeds) == 0 {
		cfg.BlogFeeds = feed.BlogFeeds()
	}
}
