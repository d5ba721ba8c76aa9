package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains embeddings in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelCaller issues chat-completion requests to a language model, including
// tool-augmented requests. Implementations must be thread-safe for
// concurrent use.
type ModelCaller interface {
	// Call sends the request and returns the model's reply. A reply may
	// contain assistant text, tool calls, or both. Call honors ctx
	// cancellation and deadlines.
	Call(ctx context.Context, req *ModelRequest) (*ModelResponse, error)
}

// AIProvider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages Embedder and
// ModelCaller instances, ensuring they share configuration.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// ModelCaller returns the chat-completion service.
	ModelCaller() ModelCaller

	// Close releases resources held by the provider and its services.
	Close() error
}
