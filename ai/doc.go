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


// Package ai provides abstractions for the AI services used by newsdesk.
//
// The package is designed around three interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - ChatClient: Produces chat completions, buffered or streamed
//   - AIProvider: Aggregates both for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs through langchaingo
//   - ai/azure: Azure OpenAI deployments through go-openai
//   - ai/ollama: The native Ollama API
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, azure.NewEmbedder, etc.) return
// INTERFACE types to enforce abstraction. Test utility constructors
// (mock.NewMockEmbedder, mock.NewMockChat) return CONCRETE types so tests can
// inject behavior and inspect call counts.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithProvider(ai.ProviderOpenAI))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Hello world")
//	answer, err := provider.Chat().Complete(ctx, []ai.Message{ai.UserMessage("Hi")}, ai.Settings{})
package ai
