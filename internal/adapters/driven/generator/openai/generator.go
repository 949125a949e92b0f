// Package openai provides an answer generator adapter using the OpenAI chat
// completions API or any compatible endpoint. Tokens are streamed as
// server-sent events.
package openai

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
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultPingTimeout = 10 * time.Second
)

// Config holds configuration for the OpenAI answer generator.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	BaseURL string

	// Model is the generation model to use (default: gpt-4o-mini).
	Model string

	// Temperature controls sampling randomness. Zero uses the model default.
	Temperature float64

	// MaxTokens caps the answer length. Zero means no cap.
	MaxTokens int
}

// Generator streams answers using the OpenAI chat completions API.
type Generator struct {
	client *http.Client
	cfg    Config
}

// chatRequest is the chat completions request format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatMessage is the chat message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatChunk is one SSE data payload of the streaming response.
type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGenerator creates a new OpenAI answer generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required: %w", domain.ErrGeneratorUnavailable)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	// No client timeout: the caller's context bounds the stream lifetime.
	return &Generator{
		client: &http.Client{},
		cfg:    cfg,
	}, nil
}

// Stream starts a generation and returns a token stream.
func (g *Generator) Stream(ctx context.Context, prompt string) (driven.AnswerStream, error) {
	reqBody := chatRequest{
		Model:       g.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Stream:      true,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.cfg.BaseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", wrapContextErr(err))
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("openai error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}

	return newEventStream(resp.Body), nil
}

// ModelName returns the name of the generation model being used.
func (g *Generator) ModelName() string {
	return g.cfg.Model
}

// Ping validates the service is reachable by checking the /models endpoint.
func (g *Generator) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(req)
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
func (g *Generator) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// eventStream reads SSE chat completion chunks off a response body.
type eventStream struct {
	mu      sync.Mutex
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
	closed  bool
}

var _ driven.AnswerStream = (*eventStream)(nil)

func newEventStream(body io.ReadCloser) *eventStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &eventStream{body: body, scanner: scanner}
}

// Recv blocks for the next token. It returns io.EOF after the terminating
// [DONE] event; any other error means the answer was cut off.
//
// The lock is not held across the blocking read, so a concurrent Close can
// tear down the connection and unblock a pending Recv.
func (s *eventStream) Recv() (string, error) {
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
		if len(line) == 0 || !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		payload := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))

		if bytes.Equal(payload, []byte("[DONE]")) {
			s.mu.Lock()
			s.done = true
			s.mu.Unlock()
			return "", io.EOF
		}

		var chunk chatChunk
		if err := json.Unmarshal(payload, &chunk); err != nil {
			return "", fmt.Errorf("decode stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return "", fmt.Errorf("openai error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
		// Deltas without content (role announcements, finish chunks) are
		// skipped; the [DONE] event still terminates the stream.
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
	// Body ended without a [DONE] event: the answer was cut off.
	return "", fmt.Errorf("openai stream ended before completion: %w", io.ErrUnexpectedEOF)
}

// Close releases the underlying connection. Safe to call at any point and
// more than once.
func (s *eventStream) Close() error {
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
