package driven

import (
	"context"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
)

// VectorStore persists chunks with their embeddings and answers similarity
// queries. The store is the sole authority for index readiness.
type VectorStore interface {
	// EnsureIndex creates the vector index if absent. Calling it again
	// with identical parameters is a no-op. If an index already exists
	// with a different dimension it fails with
	// domain.ErrIndexDimensionMismatch; the store never rebuilds silently.
	EnsureIndex(ctx context.Context, dimension int, metric domain.SimilarityMetric) error

	// Upsert stores a chunk with its embedding. Idempotent by chunk ID:
	// re-upserting the same ID replaces text, metadata and vector.
	// The vector length must match the index dimension.
	Upsert(ctx context.Context, chunk domain.Chunk, vector []float32) error

	// Search returns at most k chunk IDs ordered by descending cosine
	// similarity; ties are broken by chunk insertion order. k < 1 fails
	// with domain.ErrInvalidQuery. A query against a not-yet-ready index
	// blocks up to the store's configured wait, then fails with
	// domain.ErrIndexNotReady.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// GetChunk retrieves a stored chunk by ID for result hydration.
	// Returns domain.ErrNotFound when the ID is unknown.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// Metadata returns the index metadata, or domain.ErrNotFound when no
	// index has been created yet.
	Metadata(ctx context.Context) (*domain.IndexMetadata, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the cosine similarity score in [-1, 1].
	Score float64
}
