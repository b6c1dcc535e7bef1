package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// Exactly one implementation is active per process, selected at startup;
// the pipeline never branches on the variant per call.
//
// Implementations:
//   - Remote OpenAI-compatible API (all texts batched into one request)
//   - Local in-process model (lazy shared initialisation, one text at a time)
type EmbeddingService interface {
	// Embed generates a vector embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, index-aligned
	// with the input. Remote implementations issue one outbound call for
	// the whole batch.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size. Constant for the
	// lifetime of the service and must agree with the chunk store.
	Dimensions() int

	// ModelName returns the model identifier in use.
	ModelName() string

	// Warmup forces any lazy model initialisation ahead of the first real
	// request, returning once the service is ready or with the
	// initialisation error.
	Warmup(ctx context.Context) error

	// Close releases resources.
	Close() error
}
