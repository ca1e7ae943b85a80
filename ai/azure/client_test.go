package azure

import (
	"testing"

	"github.com/poiesic/newsdesk/ai"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(ai.ProviderAzure),
		ai.WithHost("https://example.openai.azure.com/"),
		ai.WithAPIKey("secret"),
		ai.WithChatModel("gpt-4o"),
		ai.WithEmbeddingModel("text-embedding-3-small"),
	)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	config := testConfig()
	config.APIKey = ""

	_, err := newClient(config)
	assert.Error(t, err)
}

func TestRequest(t *testing.T) {
	client, err := newClient(testConfig())
	require.NoError(t, err)

	req := client.request([]ai.Message{
		ai.SystemMessage("be brief"),
		ai.UserMessage("hello"),
		{Role: ai.RoleAssistant, Content: "hi"},
	}, ai.Settings{MaxTokens: 50, Temperature: 0.7, TopP: 0.95}, true)

	assert.Equal(t, "gpt-4o", req.Model)
	assert.True(t, req.Stream)
	assert.Equal(t, 50, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
	assert.InDelta(t, 0.95, req.TopP, 1e-6)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, req.Messages[2].Role)
	assert.Equal(t, "hello", req.Messages[1].Content)
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(testConfig())
	require.NoError(t, err)
	defer provider.Close()

	assert.NotNil(t, provider.Embedder())
	assert.NotNil(t, provider.Chat())
}
