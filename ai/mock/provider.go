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

package mock

import "github.com/repforge/wodsearch/ai"

// MockProvider is a test double for ai.AIProvider.
type MockProvider struct {
	embedder *MockEmbedder
	caller   *MockModelCaller
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production
// constructors. Use GetMockEmbedder()/GetMockModelCaller() to access
// concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		embedder: NewMockEmbedder(),
		caller:   NewMockModelCaller(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock
// services, giving tests full control over each.
func NewMockProviderWithServices(embedder *MockEmbedder, caller *MockModelCaller) ai.AIProvider {
	return &MockProvider{
		embedder: embedder,
		caller:   caller,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// ModelCaller returns the mock model caller.
func (p *MockProvider) ModelCaller() ai.ModelCaller {
	return p.caller
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockModelCaller returns the underlying mock caller for test assertions.
func (p *MockProvider) GetMockModelCaller() *MockModelCaller {
	return p.caller
}
