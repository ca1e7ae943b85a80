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



// Package storage provides the vector store abstraction for newsdesk.
//
// A VectorStore is bound to one named collection and holds core.Record
// values keyed by core.ID. Backends live in subpackages:
//
//   - memory: brute-force in-process store, used for tests and the
//     console's ephemeral collections
//   - badger: embedded on-disk store with date and link indexes
//   - qdrant: Qdrant over gRPC
//   - cosmos: Azure Cosmos DB for NoSQL with vector search
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.VectorStore interface:
//
//	store, err := badger.NewStore(backend, "news_articles")
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Scores
//
// Search scores are cosine similarities clamped to [0, 1], higher meaning
// more similar. Results are ordered by descending score; ties keep the
// backend's natural order.
//
// # Thread Safety
//
// All store implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
