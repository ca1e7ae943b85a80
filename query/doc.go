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



// Package query answers questions over a vector store collection.
//
// A Service embeds the question, runs a similarity search with a relevance
// threshold and, when asked for an answer, streams a chat completion built
// from the retrieved records. Optional collaborators add the rest of the
// console features:
//   - a query log collection, where every question is stored with a
//     one-sentence summary and used to predict the next question;
//   - a user-data collection for facts and include/exclude preferences;
//   - a feedback collection.
//
// Blank questions short-circuit before any embedding call. Summary and
// prediction failures degrade to a sentinel or an absent value; every other
// collaborator error is returned to the caller.
package query
