package config

import "github.com/poiesic/newsdesk/ai"

// Environment variable names.
const (
	EnvOpenAIAPIKey         = "OPENAI_APIKEY"
	EnvOpenAIChatModel      = "OPENAI_CHAT_MODELID"
	EnvOpenAIEmbeddingModel = "OPENAI_EMBEDDING_MODELID"
	EnvAzureEndpoint        = "AZURE_OPENAI_ENDPOINT"
	EnvAzureAPIKey          = "AZURE_OPENAI_APIKEY"
	EnvAzureChatModel       = "AZURE_OPENAI_CHAT_MODELID"
	EnvAzureEmbeddingModel  = "AZURE_OPENAI_EMBEDDING_MODELID"
	EnvCosmosConnString     = "AZURE_COSMOSDB_CONNECTIONSTRING"
	EnvQdrantHost           = "QDRANT_HOST"
	EnvOllamaHost           = "OLLAMA_HOST"
)

// ApplyEnv overrides cfg with the environment variables of the selected
// provider and store backend.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	switch cfg.AI.Provider {
	case ai.ProviderOpenAI:
		set(&cfg.AI.APIKey, EnvOpenAIAPIKey)
		set(&cfg.AI.ChatModel, EnvOpenAIChatModel)
		set(&cfg.AI.EmbeddingModel, EnvOpenAIEmbeddingModel)
	case ai.ProviderAzure:
		set(&cfg.AI.Endpoint, EnvAzureEndpoint)
		set(&cfg.AI.APIKey, EnvAzureAPIKey)
		set(&cfg.AI.ChatModel, EnvAzureChatModel)
		set(&cfg.AI.EmbeddingModel, EnvAzureEmbeddingModel)
	case ai.ProviderOllama:
		set(&cfg.AI.Endpoint, EnvOllamaHost)
	}

	set(&cfg.Store.QdrantHost, EnvQdrantHost)
	set(&cfg.Store.CosmosConnectionString, EnvCosmosConnString)
}
