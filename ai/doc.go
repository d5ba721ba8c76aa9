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

// Package ai provides abstractions for the AI services wodsearch depends on.
//
// It defines interfaces for text embeddings and tool-augmented chat
// completions, keeping the search engine and agent decoupled from any
// concrete model API.
//
// The package is designed around three interfaces:
//
//   - Embedder: generates vector embeddings from text
//   - ModelCaller: issues chat-completion requests, with tool support
//   - AIProvider: aggregates both for initialization and lifecycle
//
// Two implementation sub-packages exist:
//
//   - ai/openai: production implementation for OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external services
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// interface types to enforce abstraction. Mock constructors return concrete
// types so tests can inject behavior and assert call counts.
package ai
