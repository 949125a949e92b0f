package embedding

import (
	"context"
	"sort"
	"sync"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
)

// DefaultMaxConcurrency bounds how many sub-batch requests run at once.
const DefaultMaxConcurrency = 4

// BatchFunc embeds one sub-batch. The output length and order must match
// the input.
type BatchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// EmbedConcurrently splits texts into sub-batches of at most batchSize and
// embeds them with up to workers concurrent calls. Sub-batches are
// independent; each writes into its own slice of the output, so the result
// order always matches the input order. Sub-batches that exhaust their
// retries are collected into a *domain.EmbeddingError listing the failed
// input indices, alongside the vectors that did succeed (nil at failed
// positions).
func EmbedConcurrently(ctx context.Context, texts []string, batchSize, workers int, embed BatchFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	if workers <= 0 {
		workers = DefaultMaxConcurrency
	}

	out := make([][]float32, len(texts))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		failed  []int
		lastErr error
	)

	sem := make(chan struct{}, workers)
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			defer func() { <-sem }()

			vectors, err := embed(ctx, texts[start:end])
			if err != nil {
				mu.Lock()
				for i := start; i < end; i++ {
					failed = append(failed, i)
				}
				lastErr = err
				mu.Unlock()
				return
			}
			copy(out[start:end], vectors)
		}(start, end)
	}
	wg.Wait()

	if len(failed) > 0 {
		sort.Ints(failed)
		return out, &domain.EmbeddingError{FailedIndices: failed, Err: lastErr}
	}
	return out, nil
}
