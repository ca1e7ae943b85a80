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


package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/newsdesk/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Chat implements ai.ChatClient using OpenAI-compatible chat APIs.
type Chat struct {
	client llms.Model
	logger *slog.Logger
}

// newChat is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newChat(config *ai.Config) (*Chat, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(token(config)),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &Chat{
		client: client,
		logger: slog.Default().With("component", "openai-chat"),
	}, nil
}

// NewChat creates a new chat client using the provided configuration.
//
// Returns ai.ChatClient interface to enforce abstraction.
func NewChat(config *ai.Config) (ai.ChatClient, error) {
	return newChat(config)
}

// Complete sends the conversation and returns the first choice's content.
func (c *Chat) Complete(ctx context.Context, history []ai.Message, settings ai.Settings) (string, error) {
	response, err := c.client.GenerateContent(ctx, toMessageContent(history), callOptions(settings)...)
	if err != nil {
		c.logger.Error("failed to generate content", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		c.logger.Debug("no choices returned from model")
		return "", nil
	}
	return response.Choices[0].Content, nil
}

// Stream sends the conversation and forwards each streamed chunk to onChunk.
func (c *Chat) Stream(ctx context.Context, history []ai.Message, settings ai.Settings, onChunk func(chunk string) error) error {
	opts := append(callOptions(settings), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		return onChunk(string(chunk))
	}))

	if _, err := c.client.GenerateContent(ctx, toMessageContent(history), opts...); err != nil {
		c.logger.Error("failed to stream content", "err", err)
		return err
	}
	return nil
}

func toMessageContent(history []ai.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(history))
	for _, m := range history {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case ai.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case ai.RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}
	return content
}

func callOptions(settings ai.Settings) []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(settings.Temperature)}
	if settings.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(settings.MaxTokens))
	}
	if settings.TopP > 0 {
		opts = append(opts, llms.WithTopP(settings.TopP))
	}
	return opts
}
