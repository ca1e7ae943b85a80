package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatClient produces chat completions.
// Implementations must be thread-safe for concurrent use.
type ChatClient interface {
	// Complete sends the conversation and returns the full response text.
	Complete(ctx context.Context, history []Message, settings Settings) (string, error)

	// Stream sends the conversation and calls onChunk with each piece of the
	// response as it arrives, in order. Returning an error from onChunk stops
	// the stream and that error is returned.
	Stream(ctx context.Context, history []Message, settings Settings, onChunk func(chunk string) error) error
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and ChatClient instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Chat returns the chat completion service.
	Chat() ChatClient

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
