// Package memory provides an in-memory vector store. Suitable for tests
// and single-session use; nothing survives process exit.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driven/vectorstore"
	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// IndexName is the fixed name of the single in-memory collection.
const IndexName = "voice-memory"

type record struct {
	chunk  domain.Chunk
	vector []float32
	seq    int64
}

// Store is an in-memory implementation of driven.VectorStore using
// brute-force cosine search. Safe for concurrent readers.
type Store struct {
	mu           sync.RWMutex
	meta         *domain.IndexMetadata
	records      map[string]record
	nextSeq      int64
	notReadyWait time.Duration
	ready        chan struct{}
}

// Option configures the store.
type Option func(*Store)

// WithNotReadyWait bounds how long Search blocks for the index to become
// ready before failing with domain.ErrIndexNotReady. Zero fails immediately.
func WithNotReadyWait(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.notReadyWait = d
		}
	}
}

// NewStore creates an empty in-memory vector store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		records: make(map[string]record),
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureIndex creates the index if absent. A repeat call with identical
// parameters is a no-op; a different dimension fails without rebuilding.
func (s *Store) EnsureIndex(_ context.Context, dimension int, metric domain.SimilarityMetric) error {
	if dimension <= 0 {
		return fmt.Errorf("ensure index: %w: dimension %d", domain.ErrInvalidInput, dimension)
	}
	if metric != domain.MetricCosine {
		return fmt.Errorf("ensure index: %w: unsupported metric %q", domain.ErrInvalidInput, metric)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta != nil {
		if s.meta.Dimension != dimension {
			return fmt.Errorf("ensure index: index %q has dimension %d, requested %d: %w",
				s.meta.Name, s.meta.Dimension, dimension, domain.ErrIndexDimensionMismatch)
		}
		return nil
	}

	s.meta = &domain.IndexMetadata{
		Name:      IndexName,
		Dimension: dimension,
		Metric:    metric,
		Status:    domain.IndexReady,
	}
	close(s.ready)
	return nil
}

// Upsert stores a chunk with its embedding, replacing any previous record
// with the same chunk ID.
func (s *Store) Upsert(_ context.Context, chunk domain.Chunk, vector []float32) error {
	if err := chunk.Validate(); err != nil {
		return fmt.Errorf("upsert %q: %w", chunk.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta == nil {
		return fmt.Errorf("upsert %q: %w", chunk.ID, domain.ErrIndexNotReady)
	}
	if len(vector) != s.meta.Dimension {
		return fmt.Errorf("upsert %q: vector has %d dimensions, index wants %d: %w",
			chunk.ID, len(vector), s.meta.Dimension, domain.ErrIndexDimensionMismatch)
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)

	// Replacing keeps the original insertion sequence so tie-breaking
	// stays stable across idempotent re-upserts.
	seq := s.nextSeq
	if prev, ok := s.records[chunk.ID]; ok {
		seq = prev.seq
	} else {
		s.nextSeq++
	}
	s.records[chunk.ID] = record{chunk: chunk, vector: vec, seq: seq}
	return nil
}

// Search returns at most k hits by descending cosine similarity.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k < 1 {
		return nil, fmt.Errorf("search: k must be >= 1, got %d: %w", k, domain.ErrInvalidQuery)
	}
	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(query) != s.meta.Dimension {
		return nil, fmt.Errorf("search: query has %d dimensions, index wants %d: %w",
			len(query), s.meta.Dimension, domain.ErrInvalidQuery)
	}

	hits := make([]vectorstore.RankedHit, 0, len(s.records))
	for id, rec := range s.records {
		hits = append(hits, vectorstore.RankedHit{
			Hit: driven.VectorHit{ChunkID: id, Score: vectorstore.Cosine(query, rec.vector)},
			Seq: rec.seq,
		})
	}
	return vectorstore.TopK(hits, k), nil
}

// GetChunk retrieves a stored chunk by ID.
func (s *Store) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("get chunk %q: %w", id, domain.ErrNotFound)
	}
	chunk := rec.chunk
	return &chunk, nil
}

// Metadata returns the index metadata.
func (s *Store) Metadata(_ context.Context) (*domain.IndexMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.meta == nil {
		return nil, domain.ErrNotFound
	}
	meta := *s.meta
	return &meta, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close releases resources. No-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// awaitReady blocks until the index is ready, the configured wait elapses,
// or the context is cancelled.
func (s *Store) awaitReady(ctx context.Context) error {
	s.mu.RLock()
	ready := s.meta != nil
	s.mu.RUnlock()
	if ready {
		return nil
	}
	if s.notReadyWait <= 0 {
		return fmt.Errorf("search: %w", domain.ErrIndexNotReady)
	}

	timer := time.NewTimer(s.notReadyWait)
	defer timer.Stop()
	select {
	case <-s.ready:
		return nil
	case <-timer.C:
		return fmt.Errorf("search: waited %s: %w", s.notReadyWait, domain.ErrIndexNotReady)
	case <-ctx.Done():
		return ctx.Err()
	}
}
