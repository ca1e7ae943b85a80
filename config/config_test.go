package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/newsdesk/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "newsdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadWithEnv("", env(nil))
	require.NoError(t, err)

	assert.Equal(t, ai.ProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, DefaultOpenAIHost, cfg.AI.Endpoint)
	assert.Equal(t, BackendQdrant, cfg.Store.Backend)
	assert.Equal(t, DefaultQdrantHost, cfg.Store.QdrantHost)
	assert.Equal(t, "hash", cfg.Store.KeyStrategy)
	assert.Equal(t, DefaultNewsCollection, cfg.Collections.News)
	assert.Equal(t, DefaultFeedbackCollection, cfg.Collections.Feedback)
	assert.Equal(t, 10, cfg.Ingestion.PerSourceLimit)
	assert.Equal(t, OnFailureContinue, cfg.Ingestion.OnFailure)
	assert.Equal(t, 3, cfg.Query.Top)
	assert.InDelta(t, 0.8, cfg.Query.DisplayMinScore, 1e-6)
	assert.NotEmpty(t, cfg.NewsFeeds)
	assert.NotEmpty(t, cfg.BlogFeeds)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
ai:
  provider: ollama
store:
  backend: badger
  path: /var/lib/newsdesk
  key_strategy: sequential
ingestion:
  dedup: probe
  per_source_limit: 4
query:
  top: 5
news_feeds:
  - name: Local
    url: http://localhost/rss.xml
`)
	cfg, err := LoadWithEnv(path, env(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultOllamaHost, cfg.AI.Endpoint)
	assert.Equal(t, "llama3.2", cfg.AI.ChatModel)
	assert.Equal(t, "/var/lib/newsdesk", cfg.Store.Path)
	assert.Equal(t, "sequential", cfg.Store.KeyStrategy)
	assert.Equal(t, "probe", cfg.Ingestion.Dedup)
	assert.Equal(t, 4, cfg.Ingestion.PerSourceLimit)
	assert.Equal(t, 5, cfg.Query.Top)
	require.Len(t, cfg.NewsFeeds, 1)
	assert.Equal(t, "Local", cfg.NewsFeeds[0].Name)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"), env(nil))
	require.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := LoadWithEnv(writeConfig(t, "ai: [unclosed"), env(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_HomeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg, err := LoadWithEnv(writeConfig(t, "store:\n  path: ~/data\n"), env(nil))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data"), cfg.Store.Path)
}

func TestApplyEnv_OpenAI(t *testing.T) {
	cfg, err := LoadWithEnv("", env(map[string]string{
		EnvOpenAIAPIKey:         "sk-test",
		EnvOpenAIChatModel:      "gpt-4o-mini",
		EnvOpenAIEmbeddingModel: "text-embedding-3-small",
		EnvQdrantHost:           "qdrant:6334",
		EnvAzureAPIKey:          "ignored",
	}))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.ChatModel)
	assert.Equal(t, "text-embedding-3-small", cfg.AI.EmbeddingModel)
	assert.Equal(t, "qdrant:6334", cfg.Store.QdrantHost)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnv_Azure(t *testing.T) {
	path := writeConfig(t, "ai:\n  provider: azure\nstore:\n  backend: cosmos\n")
	cfg, err := LoadWithEnv(path, env(map[string]string{
		EnvAzureEndpoint:       "https://example.openai.azure.com",
		EnvAzureAPIKey:         "key",
		EnvAzureChatModel:      "chat",
		EnvAzureEmbeddingModel: "embed",
		EnvCosmosConnString:    "AccountEndpoint=https://x.documents.azure.com:443/;AccountKey=abc;",
		EnvOpenAIAPIKey:        "ignored",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://example.openai.azure.com", cfg.AI.Endpoint)
	assert.Equal(t, "key", cfg.AI.APIKey)
	assert.Equal(t, "chat", cfg.AI.ChatModel)
	assert.Equal(t, "embed", cfg.AI.EmbeddingModel)
	assert.NotEmpty(t, cfg.Store.CosmosConnectionString)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnv_EmptyValueIgnored(t *testing.T) {
	path := writeConfig(t, "ai:\n  provider: ollama\n  endpoint: http://gpu:11434\n")
	cfg, err := LoadWithEnv(path, env(map[string]string{EnvOllamaHost: ""}))
	require.NoError(t, err)
	assert.Equal(t, "http://gpu:11434", cfg.AI.Endpoint)
}

func TestValidate_MissingSettings(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		vars map[string]string
		want string
	}{
		{
			name: "openai key",
			want: "OPENAI_APIKEY not found",
		},
		{
			name: "openai chat model",
			vars: map[string]string{EnvOpenAIAPIKey: "k"},
			want: "OPENAI_CHAT_MODELID not found",
		},
		{
			name: "openai embedding model",
			vars: map[string]string{EnvOpenAIAPIKey: "k", EnvOpenAIChatModel: "c"},
			want: "OPENAI_EMBEDDING_MODELID not found",
		},
		{
			name: "azure endpoint",
			yaml: "ai:\n  provider: azure\n",
			want: "AZURE_OPENAI_ENDPOINT not found",
		},
		{
			name: "azure key",
			yaml: "ai:\n  provider: azure\n",
			vars: map[string]string{EnvAzureEndpoint: "https://e"},
			want: "AZURE_OPENAI_APIKEY not found",
		},
		{
			name: "cosmos connection string",
			yaml: "ai:\n  provider: ollama\nstore:\n  backend: cosmos\n",
			want: "AZURE_COSMOSDB_CONNECTIONSTRING not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.yaml != "" {
				path = writeConfig(t, tt.yaml)
			}
			cfg, err := LoadWithEnv(path, env(tt.vars))
			require.NoError(t, err)

			err = cfg.Validate()
			require.ErrorIs(t, err, ErrMissingSetting)
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestValidate_LocalOpenAICompatibleNeedsNoKey(t *testing.T) {
	path := writeConfig(t, `
ai:
  endpoint: http://localhost:8080
  chat_model: local-chat
  embedding_model: local-embed
store:
  backend: memory
`)
	cfg, err := LoadWithEnv(path, env(nil))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}

func TestValidate_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"provider", "ai:\n  provider: bedrock\n"},
		{"backend", "ai:\n  provider: ollama\nstore:\n  backend: redis\n"},
		{"key strategy", "ai:\n  provider: ollama\nstore:\n  key_strategy: uuid\n"},
		{"dedup", "ai:\n  provider: ollama\ningestion:\n  dedup: title\n"},
		{"missing link", "ai:\n  provider: ollama\ningestion:\n  missing_link: drop\n"},
		{"on failure", "ai:\n  provider: ollama\ningestion:\n  on_failure: retry\n"},
		{"min score", "ai:\n  provider: ollama\nquery:\n  min_score: 1.5\n"},
		{"cache size", "ai:\n  provider: ollama\n  embedding_cache_size: -2\n"},
		{"sequential on qdrant", "ai:\n  provider: ollama\nstore:\n  backend: qdrant\n  key_strategy: sequential\n"},
		{"sequential on cosmos", "ai:\n  provider: ollama\nstore:\n  backend: cosmos\n  key_strategy: sequential\n  cosmos_connection_string: AccountEndpoint=https://localhost:8081/;AccountKey=a2V5;\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadWithEnv(writeConfig(t, tt.yaml), env(nil))
			require.NoError(t, err)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestToAIConfig(t *testing.T) {
	path := writeConfig(t, "ai:\n  provider: ollama\n  embedding_cache_size: 32\n")
	cfg, err := LoadWithEnv(path, env(nil))
	require.NoError(t, err)

	aiCfg := cfg.ToAIConfig()
	assert.Equal(t, ai.ProviderOllama, aiCfg.Provider)
	assert.Equal(t, DefaultOllamaHost, aiCfg.ChatHost)
	assert.Equal(t, DefaultOllamaHost, aiCfg.EmbeddingHost)
	assert.Equal(t, "nomic-embed-text", aiCfg.EmbeddingModel)
	assert.Equal(t, 32, aiCfg.EmbeddingCacheSize)
	require.NoError(t, aiCfg.Validate())
}

func TestValidate_SequentialKeysNeedPersistentSequence(t *testing.T) {
	for _, backend := range []string{BackendMemory, BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			yaml := "ai:\n  provider: ollama\nstore:\n  backend: " + backend + "\n  in_memory: true\n  key_strategy: sequential\n"
			cfg, err := LoadWithEnv(writeConfig(t, yaml), env(nil))
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())
		})
	}

	cfg, err := LoadWithEnv(writeConfig(t, "ai:\n  provider: ollama\nstore:\n  backend: qdrant\n  key_strategy: sequential\n"), env(nil))
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qdrant backend has no persistent sequence")
}

func TestEmbeddingCacheSize(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want int
	}{
		{"default", "ai:\n  provider: ollama\n", DefaultEmbeddingCacheSize},
		{"explicit", "ai:\n  provider: ollama\n  embedding_cache_size: 16\n", 16},
		{"disabled", "ai:\n  provider: ollama\n  embedding_cache_size: -1\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadWithEnv(writeConfig(t, tt.yaml), env(nil))
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			aiCfg := cfg.ToAIConfig()
			assert.Equal(t, tt.want, aiCfg.EmbeddingCacheSize)
			require.NoError(t, aiCfg.Validate())
		})
	}
}
