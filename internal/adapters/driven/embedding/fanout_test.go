package embedding

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
)

// indexVectors maps each input text (a stringified index) to a one-element
// vector carrying that index, so output positions can be checked exactly.
func indexVectors(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, err
		}
		out[i] = []float32{float32(n)}
	}
	return out, nil
}

func inputs(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = strconv.Itoa(i)
	}
	return texts
}

func TestEmbedConcurrently_PreservesOrder(t *testing.T) {
	// Later sub-batches finish first; the output must still line up with
	// the input positions.
	var mu sync.Mutex
	started := 0
	embed := func(_ context.Context, texts []string) ([][]float32, error) {
		mu.Lock()
		started++
		delay := time.Duration(8-started) * 5 * time.Millisecond
		mu.Unlock()
		time.Sleep(delay)
		return indexVectors(texts)
	}

	texts := inputs(10)
	vectors, err := EmbedConcurrently(context.Background(), texts, 2, 4, embed)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, vector := range vectors {
		require.Len(t, vector, 1)
		assert.Equal(t, float32(i), vector[0])
	}
}

func TestEmbedConcurrently_FailedSubBatchIndices(t *testing.T) {
	boom := errors.New("boom")
	embed := func(_ context.Context, texts []string) ([][]float32, error) {
		// Fail the sub-batch that starts at input 2.
		if texts[0] == "2" {
			return nil, boom
		}
		return indexVectors(texts)
	}

	vectors, err := EmbedConcurrently(context.Background(), inputs(6), 2, 4, embed)

	var embErr *domain.EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, []int{2, 3}, embErr.FailedIndices)
	assert.ErrorIs(t, embErr.Err, boom)

	// Successful positions keep their vectors, failed ones stay nil.
	require.Len(t, vectors, 6)
	assert.Equal(t, []float32{0}, vectors[0])
	assert.Nil(t, vectors[2])
	assert.Nil(t, vectors[3])
	assert.Equal(t, []float32{5}, vectors[5])
}

func TestEmbedConcurrently_BoundsWorkers(t *testing.T) {
	var mu sync.Mutex
	inFlight, peak := 0, 0
	embed := func(_ context.Context, texts []string) ([][]float32, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return indexVectors(texts)
	}

	_, err := EmbedConcurrently(context.Background(), inputs(12), 1, 3, embed)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, 3)
}

func TestEmbedConcurrently_EmptyInput(t *testing.T) {
	vectors, err := EmbedConcurrently(context.Background(), nil, 2, 4,
		func(_ context.Context, texts []string) ([][]float32, error) {
			return indexVectors(texts)
		})
	assert.NoError(t, err)
	assert.Nil(t, vectors)
}
