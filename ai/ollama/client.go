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



package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/poiesic/newsdesk/ai"
)

const requestTimeout = 2 * time.Minute

// Client implements ai.Embedder and ai.ChatClient against an Ollama server.
type Client struct {
	embed          *api.Client
	chat           *api.Client
	chatModel      string
	embeddingModel string
	logger         *slog.Logger
}

func newClient(config *ai.Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: requestTimeout}

	embedURL, err := baseURL(config.EmbeddingHost)
	if err != nil {
		return nil, err
	}
	chatURL, err := baseURL(config.ChatHost)
	if err != nil {
		return nil, err
	}

	return &Client{
		embed:          api.NewClient(embedURL, httpClient),
		chat:           api.NewClient(chatURL, httpClient),
		chatModel:      config.ChatModel,
		embeddingModel: config.EmbeddingModel,
		logger:         slog.Default().With("component", "ollama"),
	}, nil
}

// baseURL strips an OpenAI-style /v1 suffix so the native API paths resolve.
func baseURL(host string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSuffix(strings.TrimSuffix(host, "/"), "/v1"))
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return u, nil
}

// EmbedText generates a vector embedding for a single text string.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.embed.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  c.embeddingModel,
		Prompt: text,
	})
	if err != nil {
		c.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}

	vector := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}

// EmbedTexts embeds each text in turn; the native endpoint takes one prompt.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := c.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Complete sends the conversation and returns the assembled response.
func (c *Client) Complete(ctx context.Context, history []ai.Message, settings ai.Settings) (string, error) {
	var sb strings.Builder
	err := c.send(ctx, history, settings, false, func(chunk string) error {
		sb.WriteString(chunk)
		return nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Stream sends the conversation and forwards each response fragment to onChunk.
func (c *Client) Stream(ctx context.Context, history []ai.Message, settings ai.Settings, onChunk func(string) error) error {
	return c.send(ctx, history, settings, true, onChunk)
}

func (c *Client) send(ctx context.Context, history []ai.Message, settings ai.Settings, stream bool, onChunk func(string) error) error {
	messages := make([]api.Message, 0, len(history))
	for _, m := range history {
		messages = append(messages, api.Message{Role: string(m.Role), Content: m.Content})
	}

	options := map[string]interface{}{
		"temperature": settings.Temperature,
	}
	if settings.TopP > 0 {
		options["top_p"] = settings.TopP
	}
	if settings.MaxTokens > 0 {
		options["num_predict"] = settings.MaxTokens
	}

	req := &api.ChatRequest{
		Model:    c.chatModel,
		Messages: messages,
		Options:  options,
		Stream:   &stream,
	}

	err := c.chat.Chat(ctx, req, func(resp api.ChatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		return onChunk(resp.Message.Content)
	})
	if err != nil {
		c.logger.Error("chat request failed", "err", err)
	}
	return err
}
