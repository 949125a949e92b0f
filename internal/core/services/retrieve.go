package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driving"
	"github.com/verbatim-labs/verbatim-cli/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService drives the query path up to ranked chunks.
type RetrievalService struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(embedder driven.EmbeddingService, store driven.VectorStore) *RetrievalService {
	return &RetrievalService{
		embedder: embedder,
		store:    store,
	}
}

// Retrieve embeds the query once, runs a top-k similarity search and drops
// results scoring below opts.MinScore. An empty result is a valid "no
// relevant context" outcome, not an error.
func (s *RetrievalService) Retrieve(
	ctx context.Context, query string, opts domain.RetrieveOptions,
) ([]domain.RetrievalResult, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("retrieve: %w", domain.ErrEmbeddingUnavailable)
	}
	if s.store == nil {
		return nil, errors.New("retrieve: vector store unavailable")
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("retrieve: empty query: %w", domain.ErrInvalidQuery)
	}

	topK := opts.TopK
	if topK == 0 {
		topK = domain.DefaultTopK
	}
	if topK < 1 {
		return nil, fmt.Errorf("retrieve: top-k must be >= 1, got %d: %w", topK, domain.ErrInvalidQuery)
	}
	// Cosine scores span [-1, 1]; a negative threshold keeps
	// weakly-dissimilar hits and is a valid request.
	if opts.MinScore < -1 || opts.MinScore > 1 {
		return nil, fmt.Errorf("retrieve: min score must be in [-1, 1], got %g: %w", opts.MinScore, domain.ErrInvalidQuery)
	}

	logger.Section("Retrieval")
	logger.Debug("Query: %q, top-k: %d, min score: %g", query, topK, opts.MinScore)

	// One embedding per query, shared by the whole search.
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed query: %w", err)
	}
	logger.Debug("Query embedding: %d dimensions", len(vector))

	hits, err := s.store.Search(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	logger.Debug("Search: %d hits", len(hits))

	results := make([]domain.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < opts.MinScore {
			// Hits arrive in descending score order, so the rest are
			// below the threshold too.
			break
		}

		chunk, err := s.store.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Chunk was deleted between search and hydration, skip it
				continue
			}
			return nil, fmt.Errorf("retrieve: get chunk %s: %w", hit.ChunkID, err)
		}

		results = append(results, domain.RetrievalResult{
			Chunk: *chunk,
			Score: hit.Score,
			Rank:  len(results) + 1,
		})
	}

	logger.Info("Retrieved %d results", len(results))
	return results, nil
}
