package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/newsdesk/ai"
	openai "github.com/sashabaranov/go-openai"
)

// Client implements ai.Embedder and ai.ChatClient against an Azure OpenAI
// resource.
type Client struct {
	api            *openai.Client
	chatModel      string
	embeddingModel string
	logger         *slog.Logger
}

func newClient(config *ai.Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cfg := openai.DefaultAzureConfig(config.APIKey, config.ChatHost)
	// Deployments are named after the models they serve.
	cfg.AzureModelMapperFunc = func(model string) string {
		return model
	}

	return &Client{
		api:            openai.NewClientWithConfig(cfg),
		chatModel:      config.ChatModel,
		embeddingModel: config.EmbeddingModel,
		logger:         slog.Default().With("component", "azure-openai"),
	}, nil
}

// EmbedText generates a vector embedding for a single text string.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		c.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	c.logger.Debug("generating embeddings for texts", "count", len(texts))

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		c.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("azure embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("azure embeddings: index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Complete sends the conversation and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, history []ai.Message, settings ai.Settings) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, c.request(history, settings, false))
	if err != nil {
		c.logger.Error("failed to generate content", "err", err)
		return "", err
	}
	if len(resp.Choices) < 1 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream sends the conversation and forwards each streamed delta to onChunk.
func (c *Client) Stream(ctx context.Context, history []ai.Message, settings ai.Settings, onChunk func(string) error) error {
	stream, err := c.api.CreateChatCompletionStream(ctx, c.request(history, settings, true))
	if err != nil {
		c.logger.Error("failed to open stream", "err", err)
		return err
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			c.logger.Error("stream failed", "err", err)
			return err
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		if err := onChunk(resp.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
}

func (c *Client) request(history []ai.Message, settings ai.Settings, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case ai.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case ai.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	return openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		MaxTokens:   settings.MaxTokens,
		Temperature: float32(settings.Temperature),
		TopP:        float32(settings.TopP),
		Stream:      stream,
	}
}
