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



// Package azure provides AI service implementations backed by Azure OpenAI
// deployments.
//
// Model names in ai.Config are used as deployment names. Chat and embedding
// requests go through the go-openai client configured for Azure.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithProvider(ai.ProviderAzure),
//	    ai.WithHost(os.Getenv("AZURE_OPENAI_ENDPOINT")),
//	    ai.WithAPIKey(os.Getenv("AZURE_OPENAI_APIKEY")),
//	    ai.WithChatModel(os.Getenv("AZURE_OPENAI_CHAT_MODELID")),
//	    ai.WithEmbeddingModel(os.Getenv("AZURE_OPENAI_EMBEDDING_MODELID")),
//	)
//
//	provider, err := azure.NewProvider(config)
package azure
