package driven

import "context"

// AnswerGenerator streams answers from a language model.
// This is an optional service - when nil, question answering is disabled
// and retrieval-only commands keep working.
//
// Implementations may include:
//   - Ollama (local models, NDJSON streaming)
//   - OpenAI-compatible chat APIs (SSE streaming)
type AnswerGenerator interface {
	// Stream starts a generation for the given prompt and returns a token
	// stream. The stream is finite, single-consumer and not restartable.
	Stream(ctx context.Context, prompt string) (AnswerStream, error)

	// ModelName returns the name of the generation model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// AnswerStream yields answer tokens as they arrive from the model.
//
// Recv returns io.EOF after the final token of a complete answer. Any other
// error is terminal and means the answer was cut off, letting the caller
// distinguish "complete" from "truncated by failure". Close releases the
// underlying connection and is safe to call at any point, including before
// the stream is drained.
type AnswerStream interface {
	// Recv blocks for the next token.
	Recv() (string, error)

	// Close releases the underlying stream resources. Recv after Close
	// returns domain.ErrStreamClosed.
	Close() error
}
