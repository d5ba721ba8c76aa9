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

package search

import "errors"

var (
	// ErrWorkoutRepositoryRequired is returned when a workout repository is not provided.
	ErrWorkoutRepositoryRequired = errors.New("workout repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrRetrievalUnavailable is returned when every retrieval path for the
	// requested mode is down, including the degraded keyword fallback.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrInvalidWeights is returned for non-positive or non-finite fusion weights.
	ErrInvalidWeights = errors.New("invalid fusion weights")
)
