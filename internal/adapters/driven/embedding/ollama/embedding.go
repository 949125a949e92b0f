// Package ollama provides an embedding service adapter using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driven/embedding"
	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL      = "http://localhost:11434"
	DefaultModel        = "nomic-embed-text"
	DefaultTimeout      = 30 * time.Second
	DefaultDimensions   = 768 // nomic-embed-text default
	DefaultMaxBatchSize = 32
	DefaultMaxRetries   = 3
)

// Config holds configuration for the Ollama embedding service.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: nomic-embed-text).
	Model string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (model-dependent).
	Dimensions int

	// MaxBatchSize caps how many texts go into a single API request
	// (default: 32). Local models choke on very large batches.
	MaxBatchSize int

	// MaxRetries is the number of retries per request after the first
	// attempt (default: 3).
	MaxRetries int

	// MaxConcurrency bounds how many sub-batch requests run at once
	// during batch ingestion (default: embedding.DefaultMaxConcurrency).
	MaxConcurrency int
}

// EmbeddingService generates embeddings using Ollama's /api/embed endpoint.
type EmbeddingService struct {
	client         *http.Client
	baseURL        string
	model          string
	dimensions     int
	maxBatchSize   int
	maxRetries     int
	maxConcurrency int
}

// embedRequest is the Ollama batch embed API request format.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the Ollama batch embed API response format.
type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// NewEmbeddingService creates a new Ollama embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = embedding.DefaultMaxConcurrency
	}

	return &EmbeddingService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		model:          cfg.Model,
		dimensions:     cfg.Dimensions,
		maxBatchSize:   cfg.MaxBatchSize,
		maxRetries:     cfg.MaxRetries,
		maxConcurrency: cfg.MaxConcurrency,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.embedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("ollama: no embedding returned")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts. Sub-batches are
// embedded concurrently by a bounded worker pool and succeed or fail
// independently; exhausted retries surface as a *domain.EmbeddingError
// listing the failed input indices.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedding.EmbedConcurrently(ctx, texts, s.maxBatchSize, s.maxConcurrency, s.embedWithRetry)
}

// embedWithRetry issues one embed request for a sub-batch, retrying
// transient failures with exponential backoff.
func (s *EmbeddingService) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	jsonBody, err := json.Marshal(embedRequest{Model: s.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, wrapContextErr(ctx.Err())
			case <-time.After(embedding.RetryDelay(attempt - 1)):
			}
		}

		vectors, retryable, err := s.doEmbedRequest(ctx, jsonBody, len(texts))
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// doEmbedRequest performs a single HTTP round trip. The second return value
// reports whether the failure is worth retrying.
func (s *EmbeddingService) doEmbedRequest(ctx context.Context, jsonBody []byte, n int) ([][]float32, bool, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/api/embed",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("send request: %w", wrapContextErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("ollama error (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, false, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}
	if embedResp.Error != "" {
		return nil, false, fmt.Errorf("ollama error: %s", embedResp.Error)
	}
	if len(embedResp.Embeddings) != n {
		return nil, false, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(embedResp.Embeddings), n)
	}

	// Convert float64 to float32; Ollama preserves input order.
	vectors := make([][]float32, n)
	for i, raw := range embedResp.Embeddings {
		vector := make([]float32, len(raw))
		for j, v := range raw {
			vector[j] = float32(v)
		}
		vectors[i] = vector
	}

	return vectors, false, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", wrapContextErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("ollama: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// wrapContextErr maps a deadline expiry onto the domain timeout sentinel.
func wrapContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}
