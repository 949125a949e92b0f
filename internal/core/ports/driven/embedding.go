package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations batch internally up to a configured maximum batch size and
// retry transient failures with backoff. When retries are exhausted the
// returned error is a *domain.EmbeddingError carrying the failed input
// indices, so the caller can re-run exactly the failed unit.
//
// Implementations may include:
//   - OpenAI-compatible APIs (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//   - Local models via inference servers
type EmbeddingService interface {
	// Embed generates a vector embedding for a single text. Used on the
	// query path, which is never batched with ingestion traffic.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. The output has
	// exactly one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	// This is determined by the model and must match the VectorStore index.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
