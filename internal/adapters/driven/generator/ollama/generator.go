// Package ollama provides an answer generator adapter using Ollama.
// Tokens are streamed as NDJSON from the /api/generate endpoint.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
)

// Ensure Generator implements the interface.
var _ driven.AnswerGenerator = (*Generator)(nil)

// Default configuration values.
const (
	DefaultBaseURL     = "http://localhost:11434"
	DefaultModel       = "llama3.2"
	DefaultPingTimeout = 10 * time.Second
)

// Config holds configuration for the Ollama answer generator.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the generation model to use (default: llama3.2).
	Model string

	// Temperature controls sampling randomness. Zero uses the model default.
	Temperature float64

	// MaxTokens caps the answer length. Zero means no cap.
	MaxTokens int
}

// Generator streams answers using Ollama.
type Generator struct {
	client *http.Client
	cfg    Config
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// generateChunk is one NDJSON line of the streaming response.
type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewGenerator creates a new Ollama answer generator.
func NewGenerator(cfg Config) *Generator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	// No client timeout: generation streams for as long as the caller's
	// context allows, and cancelling that context tears the stream down.
	return &Generator{
		client: &http.Client{},
		cfg:    cfg,
	}
}

// Stream starts a generation and returns a token stream. Nothing is read
// from the connection until the caller asks for tokens.
func (g *Generator) Stream(ctx context.Context, prompt string) (driven.AnswerStream, error) {
	reqBody := generateRequest{
		Model:  g.cfg.Model,
		Prompt: prompt,
		Stream: true,
	}
	if g.cfg.MaxTokens > 0 || g.cfg.Temperature > 0 {
		reqBody.Options = &options{
			NumPredict:  g.cfg.MaxTokens,
			Temperature: g.cfg.Temperature,
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.cfg.BaseURL+"/api/generate",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", wrapContextErr(err))
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	return newTokenStream(resp.Body), nil
}

// ModelName returns the name of the generation model being used.
func (g *Generator) ModelName() string {
	return g.cfg.Model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
func (g *Generator) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := g.client.Do(req)
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
func (g *Generator) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// tokenStream reads NDJSON generation chunks off a response body.
type tokenStream struct {
	mu      sync.Mutex
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
	closed  bool
}

var _ driven.AnswerStream = (*tokenStream)(nil)

func newTokenStream(body io.ReadCloser) *tokenStream {
	scanner := bufio.NewScanner(body)
	// Individual NDJSON lines can carry large tokens plus metadata.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &tokenStream{body: body, scanner: scanner}
}

// Recv blocks for the next token. It returns io.EOF after the model's final
// chunk; any other error means the answer was cut off.
//
// The lock is not held across the blocking read, so a concurrent Close can
// tear down the connection and unblock a pending Recv.
func (s *tokenStream) Recv() (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", domain.ErrStreamClosed
	}
	if s.done {
		s.mu.Unlock()
		return "", io.EOF
	}
	s.mu.Unlock()

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("decode stream chunk: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama error: %s", chunk.Error)
		}
		if chunk.Done {
			s.mu.Lock()
			s.done = true
			s.mu.Unlock()
			if chunk.Response != "" {
				return chunk.Response, nil
			}
			return "", io.EOF
		}
		return chunk.Response, nil
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", domain.ErrStreamClosed
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", wrapContextErr(err))
	}
	// Body ended without a done chunk: the answer was cut off.
	return "", fmt.Errorf("ollama stream ended before completion: %w", io.ErrUnexpectedEOF)
}

// Close releases the underlying connection. Safe to call at any point and
// more than once.
func (s *tokenStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

// wrapContextErr maps a deadline expiry onto the domain timeout sentinel.
func wrapContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}
