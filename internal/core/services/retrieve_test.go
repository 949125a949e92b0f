package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbedder implements driven.EmbeddingService for testing.
type mockEmbedder struct {
	dims       int
	embedErr   error
	batchErr   error
	embedCalls int
	batchCalls int
}

func (m *mockEmbedder) vectorFor(text string) []float32 {
	v := make([]float32, m.dims)
	if m.dims > 0 {
		v[0] = float32(len(text))
	}
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls++
	out := make([][]float32, len(texts))
	failed := make(map[int]bool)
	var batchErr *domain.EmbeddingError
	if errors.As(m.batchErr, &batchErr) {
		for _, idx := range batchErr.FailedIndices {
			failed[idx] = true
		}
	} else if m.batchErr != nil {
		return nil, m.batchErr
	}
	for i, text := range texts {
		if failed[i] {
			continue
		}
		out[i] = m.vectorFor(text)
	}
	return out, m.batchErr
}

func (m *mockEmbedder) Dimensions() int              { return m.dims }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockVectorStore implements driven.VectorStore for testing.
type mockVectorStore struct {
	hits      []driven.VectorHit
	chunks    map[string]domain.Chunk
	vectors   map[string][]float32
	dimension int
	metric    domain.SimilarityMetric

	ensureErr error
	upsertErr error
	searchErr error

	ensureCalls int
	searchK     int
}

func newMockVectorStore() *mockVectorStore {
	return &mockVectorStore{
		chunks:  make(map[string]domain.Chunk),
		vectors: make(map[string][]float32),
	}
}

func (m *mockVectorStore) EnsureIndex(_ context.Context, dimension int, metric domain.SimilarityMetric) error {
	m.ensureCalls++
	if m.ensureErr != nil {
		return m.ensureErr
	}
	if m.dimension != 0 && m.dimension != dimension {
		return domain.ErrIndexDimensionMismatch
	}
	m.dimension = dimension
	m.metric = metric
	return nil
}

func (m *mockVectorStore) Upsert(_ context.Context, chunk domain.Chunk, vector []float32) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.chunks[chunk.ID] = chunk
	m.vectors[chunk.ID] = vector
	return nil
}

func (m *mockVectorStore) Search(_ context.Context, _ []float32, k int) ([]driven.VectorHit, error) {
	m.searchK = k
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:k], nil
}

func (m *mockVectorStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	chunk, ok := m.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chunk, nil
}

func (m *mockVectorStore) Metadata(_ context.Context) (*domain.IndexMetadata, error) {
	if m.dimension == 0 {
		return nil, domain.ErrNotFound
	}
	return &domain.IndexMetadata{Dimension: m.dimension, Metric: m.metric}, nil
}

func (m *mockVectorStore) Count(_ context.Context) (int, error) {
	return len(m.chunks), nil
}

func (m *mockVectorStore) Close() error { return nil }

// testChunk builds a minimal stored chunk for retrieval tests.
func testChunk(id, speaker, text string) domain.Chunk {
	return domain.Chunk{
		ID:           id,
		TranscriptID: "tr-1",
		SpeakerIDs:   []string{speaker},
		Text:         text,
		StartMS:      0,
		EndMS:        5000,
	}
}

// --- Tests ---

// TestRetrieve_RanksAndHydrates tests the happy path from query to ranked chunks.
func TestRetrieve_RanksAndHydrates(t *testing.T) {
	embedder := &mockEmbedder{dims: 4}
	store := newMockVectorStore()
	store.chunks["tr-1:0"] = testChunk("tr-1:0", "alice", "budget review")
	store.chunks["tr-1:1"] = testChunk("tr-1:1", "bob", "release planning")
	store.hits = []driven.VectorHit{
		{ChunkID: "tr-1:0", Score: 0.92},
		{ChunkID: "tr-1:1", Score: 0.71},
	}

	svc := NewRetrievalService(embedder, store)
	results, err := svc.Retrieve(context.Background(), "what was decided about the budget?", domain.RetrieveOptions{})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "tr-1:0", results[0].Chunk.ID)
	assert.Equal(t, 0.92, results[0].Score)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "tr-1:1", results[1].Chunk.ID)
	assert.Equal(t, 2, results[1].Rank)

	// The query is embedded exactly once regardless of hit count.
	assert.Equal(t, 1, embedder.embedCalls)
}

// TestRetrieve_DefaultTopK tests that a zero TopK falls back to the default.
func TestRetrieve_DefaultTopK(t *testing.T) {
	store := newMockVectorStore()
	svc := NewRetrievalService(&mockEmbedder{dims: 4}, store)

	_, err := svc.Retrieve(context.Background(), "anything", domain.RetrieveOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTopK, store.searchK)
}

// TestRetrieve_MinScoreFilter tests that hits below the threshold are dropped.
func TestRetrieve_MinScoreFilter(t *testing.T) {
	store := newMockVectorStore()
	store.chunks["tr-1:0"] = testChunk("tr-1:0", "alice", "relevant")
	store.chunks["tr-1:1"] = testChunk("tr-1:1", "bob", "barely related")
	store.hits = []driven.VectorHit{
		{ChunkID: "tr-1:0", Score: 0.9},
		{ChunkID: "tr-1:1", Score: 0.3},
	}

	svc := NewRetrievalService(&mockEmbedder{dims: 4}, store)
	results, err := svc.Retrieve(context.Background(), "query", domain.RetrieveOptions{MinScore: 0.5})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "tr-1:0", results[0].Chunk.ID)
}

// TestRetrieve_NegativeMinScore tests that a negative threshold is accepted
// and keeps weakly-dissimilar hits; cosine scores span [-1, 1].
func TestRetrieve_NegativeMinScore(t *testing.T) {
	store := newMockVectorStore()
	store.chunks["tr-1:0"] = testChunk("tr-1:0", "alice", "relevant")
	store.chunks["tr-1:1"] = testChunk("tr-1:1", "bob", "dissimilar")
	store.hits = []driven.VectorHit{
		{ChunkID: "tr-1:0", Score: 0.9},
		{ChunkID: "tr-1:1", Score: -0.2},
	}

	svc := NewRetrievalService(&mockEmbedder{dims: 4}, store)
	results, err := svc.Retrieve(context.Background(), "query", domain.RetrieveOptions{MinScore: -0.5})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, -0.2, results[1].Score)
}

// TestRetrieve_EmptyResultIsValid tests that no hits is an empty slice, not an error.
func TestRetrieve_EmptyResultIsValid(t *testing.T) {
	svc := NewRetrievalService(&mockEmbedder{dims: 4}, newMockVectorStore())

	results, err := svc.Retrieve(context.Background(), "nothing matches", domain.RetrieveOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

// TestRetrieve_Validation tests query and option validation.
func TestRetrieve_Validation(t *testing.T) {
	svc := NewRetrievalService(&mockEmbedder{dims: 4}, newMockVectorStore())

	_, err := svc.Retrieve(context.Background(), "   ", domain.RetrieveOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)

	_, err = svc.Retrieve(context.Background(), "q", domain.RetrieveOptions{TopK: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)

	_, err = svc.Retrieve(context.Background(), "q", domain.RetrieveOptions{MinScore: 1.5})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)

	_, err = svc.Retrieve(context.Background(), "q", domain.RetrieveOptions{MinScore: -1.5})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

// TestRetrieve_NoEmbedder tests the unconfigured embedder error.
func TestRetrieve_NoEmbedder(t *testing.T) {
	svc := NewRetrievalService(nil, newMockVectorStore())

	_, err := svc.Retrieve(context.Background(), "q", domain.RetrieveOptions{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

// TestRetrieve_SkipsVanishedChunks tests that a chunk deleted between search
// and hydration is skipped without failing the query.
func TestRetrieve_SkipsVanishedChunks(t *testing.T) {
	store := newMockVectorStore()
	store.chunks["tr-1:1"] = testChunk("tr-1:1", "bob", "still here")
	store.hits = []driven.VectorHit{
		{ChunkID: "tr-1:0", Score: 0.9}, // not in the store
		{ChunkID: "tr-1:1", Score: 0.8},
	}

	svc := NewRetrievalService(&mockEmbedder{dims: 4}, store)
	results, err := svc.Retrieve(context.Background(), "query", domain.RetrieveOptions{})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "tr-1:1", results[0].Chunk.ID)
	assert.Equal(t, 1, results[0].Rank)
}

// TestRetrieve_EmbedFailure tests that an embedding failure surfaces.
func TestRetrieve_EmbedFailure(t *testing.T) {
	embedder := &mockEmbedder{dims: 4, embedErr: domain.ErrTimeout}
	svc := NewRetrievalService(embedder, newMockVectorStore())

	_, err := svc.Retrieve(context.Background(), "query", domain.RetrieveOptions{})
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

// TestRetrieve_SearchFailure tests that a store failure surfaces.
func TestRetrieve_SearchFailure(t *testing.T) {
	store := newMockVectorStore()
	store.searchErr = domain.ErrIndexNotReady

	svc := NewRetrievalService(&mockEmbedder{dims: 4}, store)
	_, err := svc.Retrieve(context.Background(), "query", domain.RetrieveOptions{})
	assert.ErrorIs(t, err, domain.ErrIndexNotReady)
}
