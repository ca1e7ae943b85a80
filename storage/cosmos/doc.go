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



// Package cosmos provides a VectorStore backed by Azure Cosmos DB for NoSQL.
//
// Each collection maps to a container partitioned on /collection. Similarity
// search uses the VectorDistance system function over the embedding path.
// Containers created here keep the embedding out of the range index, so
// VectorDistance runs as a flat scan. A container provisioned elsewhere with a
// vector embedding policy and vector index is used as is.
package cosmos
