// Copyright 2025 Repforge Labs
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

// Package search provides hybrid lexical and vector search over workout
// records.
//
// The Engine runs both retrieval paths concurrently and fuses their scores:
//   - Lexical relevance from the term index, with quoted-phrase and boolean
//     operator support passed through to the backend
//   - Vector similarity over summary embeddings
//
// Fusion is recall-preserving: a record found by only one path is kept with
// the missing score treated as zero. Results are ordered by a total order
// (fused, then vector similarity, then date, then identifier) so pagination
// and tests are reproducible.
//
// When the lexical backend is down the engine degrades to a keyword scan
// over stored records and marks affected results; when the vector path is
// down it serves lexical-only results. Only the loss of every path fails
// the search.
package search
