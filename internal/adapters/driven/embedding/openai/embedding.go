// Package openai provides an embedding service adapter using the OpenAI API
// or any compatible endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driven/embedding"
	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL      = "https://api.openai.com/v1"
	DefaultModel        = "text-embedding-3-small"
	DefaultTimeout      = 60 * time.Second
	DefaultMaxBatchSize = 64
	DefaultMaxRetries   = 3
)

// Model dimensions for OpenAI embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the per-request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the default dimension for the model.
	// Only applicable to text-embedding-3-* models.
	Dimensions int

	// MaxBatchSize caps how many texts go into a single API request.
	// Larger batches are split transparently (default: 64).
	MaxBatchSize int

	// MaxRetries is the number of retries per request after the first
	// attempt (default: 3).
	MaxRetries int

	// MaxConcurrency bounds how many sub-batch requests run at once
	// during batch ingestion (default: embedding.DefaultMaxConcurrency).
	// The rate limiter still applies across workers.
	MaxConcurrency int

	// RateLimit bounds the request rate. Zero values use conservative
	// defaults.
	RateLimit embedding.RateLimitConfig
}

// EmbeddingService generates embeddings using the OpenAI API.
type EmbeddingService struct {
	client         *http.Client
	limiter        *embedding.RateLimiter
	baseURL        string
	apiKey         string
	model          string
	dimensions     int
	maxBatchSize   int
	maxRetries     int
	maxConcurrency int
}

// embeddingRequest is the OpenAI API request format.
type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// embeddingResponse is the OpenAI API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required: %w", domain.ErrEmbeddingUnavailable)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
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

	// Determine dimensions
	dimensions := cfg.Dimensions
	if dimensions == 0 {
		var ok bool
		dimensions, ok = modelDimensions[cfg.Model]
		if !ok {
			dimensions = 1536 // Default fallback
		}
	}

	return &EmbeddingService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:        embedding.NewRateLimiter(cfg.RateLimit),
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		dimensions:     dimensions,
		maxBatchSize:   cfg.MaxBatchSize,
		maxRetries:     cfg.MaxRetries,
		maxConcurrency: cfg.MaxConcurrency,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.embedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("openai: no embedding returned")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts. Inputs beyond the
// configured batch size are split across requests and embedded concurrently
// by a bounded worker pool; each sub-batch succeeds or fails independently.
// When any sub-batch exhausts its retries the returned error is a
// *domain.EmbeddingError listing the failed input indices, alongside the
// vectors that did succeed (nil at failed positions).
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedding.EmbedConcurrently(ctx, texts, s.maxBatchSize, s.maxConcurrency, s.embedWithRetry)
}

// embedWithRetry issues one embeddings request for a sub-batch, retrying
// transient failures (429, 5xx, network errors) with exponential backoff.
// Retry-After headers are honoured via the rate limiter.
func (s *EmbeddingService) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Model: s.model,
		Input: texts,
	}

	// Only include dimensions for text-embedding-3-* models
	if s.model == "text-embedding-3-small" || s.model == "text-embedding-3-large" {
		reqBody.Dimensions = s.dimensions
	}

	jsonBody, err := json.Marshal(reqBody)
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
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, wrapContextErr(err)
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
		s.baseURL+"/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("send request: %w", wrapContextErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				s.limiter.RecordRateLimitError(secs)
			}
		}
		return nil, true, fmt.Errorf("openai error (status %d)", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}

	if embedResp.Error != nil {
		return nil, false, fmt.Errorf("openai error: %s", embedResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}
	if len(embedResp.Data) != n {
		return nil, false, fmt.Errorf("openai returned %d embeddings for %d inputs", len(embedResp.Data), n)
	}

	// Convert float64 to float32 and order by index
	vectors := make([][]float32, n)
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= n {
			return nil, false, fmt.Errorf("openai returned out-of-range index %d", data.Index)
		}
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		vectors[data.Index] = vector
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

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", wrapContextErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// wrapContextErr maps a deadline expiry onto the domain timeout sentinel so
// callers can decide whether to retry the call as a whole.
func wrapContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}
