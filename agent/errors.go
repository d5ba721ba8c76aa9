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

package agent

import (
	"fmt"
	"time"
)

// Kind classifies every externally visible failure. Raw internal errors
// never cross the orchestrator boundary.
type Kind int

const (
	// KindInvalidInput covers empty questions; malformed conversation
	// tokens are recovered by substituting a fresh token instead.
	KindInvalidInput Kind = iota + 1

	// KindRetrievalUnavailable means both search backends are down.
	KindRetrievalUnavailable

	// KindRateLimited is a governor denial.
	KindRateLimited

	// KindModelCallFailed is a model error or timeout that survived the
	// retry.
	KindModelCallFailed
)

// String returns the stable identifier for the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindRetrievalUnavailable:
		return "retrieval_unavailable"
	case KindRateLimited:
		return "rate_limited"
	case KindModelCallFailed:
		return "model_call_failed"
	default:
		return "unknown"
	}
}

// Error is the only error type HandleQuestion returns. The message is safe
// to show a user; the cause is for logs.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration // set for KindRateLimited
	cause      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}
