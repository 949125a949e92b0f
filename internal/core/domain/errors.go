package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedTranscript indicates the transcript input was empty or
	// unparseable as a whole. Individual bad utterances are dropped and
	// logged, not escalated to this error.
	ErrMalformedTranscript = errors.New("malformed transcript")

	// ErrInvalidQuery indicates a caller bug in query parameters
	// (e.g. top-k < 1). Fatal to that call only.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrIndexDimensionMismatch indicates an index exists with a different
	// vector dimension than requested. The store never silently rebuilds:
	// a dimension change implies a full re-embed, an operator action.
	ErrIndexDimensionMismatch = errors.New("index dimension mismatch")

	// ErrIndexNotReady indicates a similarity query was issued before the
	// store confirmed the index is queryable. Retryable with backoff.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrTimeout indicates a network call exceeded its per-call deadline.
	// Retryable up to a bounded attempt count.
	ErrTimeout = errors.New("timed out")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Ingestion and retrieval are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGeneratorUnavailable indicates the answer generator is not
	// configured. Retrieval still works; answering is disabled.
	ErrGeneratorUnavailable = errors.New("answer generator unavailable")

	// ErrStreamClosed indicates a token was requested from an answer
	// stream that has already been closed by the consumer.
	ErrStreamClosed = errors.New("answer stream closed")
)

// EmbeddingError reports a batch embedding failure after retries were
// exhausted. FailedIndices are positions into the caller's input slice, so
// the caller can mark exactly those chunks pending and re-run them rather
// than losing the whole ingestion run.
type EmbeddingError struct {
	// FailedIndices are the input positions whose embeddings were not
	// produced, in ascending order.
	FailedIndices []int

	// Err is the underlying cause from the final attempt.
	Err error
}

// Error implements the error interface.
func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed for %d input(s) %v: %v", len(e.FailedIndices), e.FailedIndices, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *EmbeddingError) Unwrap() error {
	return e.Err
}
