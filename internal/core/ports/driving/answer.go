package driving

import (
	"context"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
)

// RetrievalService drives the query path up to ranked chunks.
type RetrievalService interface {
	// Retrieve embeds the query, runs a top-k similarity search and drops
	// results scoring below opts.MinScore. An empty result is a valid
	// "no relevant context" outcome, not an error.
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) ([]domain.RetrievalResult, error)
}

// AnswerService drives the full query path: retrieve → assemble → generate.
type AnswerService interface {
	// Ask retrieves context for the question and streams a grounded
	// answer. The returned results are the sources the answer was
	// grounded on; they may be empty, in which case the model is told no
	// context was found.
	Ask(ctx context.Context, question string, opts domain.RetrieveOptions) (driven.AnswerStream, []domain.RetrievalResult, error)
}
