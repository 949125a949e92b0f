package domain

// RetrievalResult is a single ranked hit from a similarity query.
// Results are request-scoped: produced per query, never persisted.
type RetrievalResult struct {
	// Chunk is the retrieved chunk, hydrated from the store.
	Chunk Chunk

	// Score is the cosine similarity of the chunk's vector to the query
	// vector, in [-1, 1]; higher is more similar.
	Score float64

	// Rank is the 1-based position in the result ordering.
	Rank int
}

// RetrieveOptions configures a retrieval request.
type RetrieveOptions struct {
	// TopK is the maximum number of results to return. Must be >= 1.
	TopK int

	// MinScore drops results scoring below the threshold. Zero keeps
	// everything with a non-negative score boundary disabled.
	MinScore float64
}

// DefaultTopK is the retrieval depth used when the caller does not
// specify one.
const DefaultTopK = 5
