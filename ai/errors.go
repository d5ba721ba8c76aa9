package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrModelCall indicates a chat-completion request failed after any
	// provider-internal retries.
	ErrModelCall = errors.New("model call failed")

	// ErrModelTimeout indicates a chat-completion request exceeded its
	// deadline. Wraps ErrModelCall so callers can match either.
	ErrModelTimeout = fmt.Errorf("%w: timed out", ErrModelCall)

	// ErrEmbedding indicates an embedding request failed.
	ErrEmbedding = errors.New("embedding generation failed")
)
