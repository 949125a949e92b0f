package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driving"
	"github.com/verbatim-labs/verbatim-cli/internal/logger"
)

// Ensure AnswerService implements the driving port.
var _ driving.AnswerService = (*AnswerService)(nil)

// fallbackAnswerPrompt is used when no prompt store is wired or the store
// fails to load. It mirrors the embedded default in the file prompt store.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
const fallbackAnswerPrompt = `You are a helpful AI assistant. Use the context information below to answer the user's query. Provide a concise and direct answer based only on the given context.

--- CONTEXT ---
%s
--- END CONTEXT ---

Query: %s
Answer: `

// AnswerService runs the full question path: retrieve relevant chunks,
// assemble them into a context block and stream a grounded answer.
type AnswerService struct {
	retriever driving.RetrievalService
	generator driven.AnswerGenerator
	prompts   driven.PromptStore
	assembler *Assembler
}

// NewAnswerService creates an answer service. The generator may be nil,
// in which case Ask reports domain.ErrGeneratorUnavailable. The prompt
// store may be nil; the embedded default prompt is used instead. A nil
// assembler gets the default context budget.
func NewAnswerService(
	retriever driving.RetrievalService,
	generator driven.AnswerGenerator,
	prompts driven.PromptStore,
	assembler *Assembler,
) *AnswerService {
	if assembler == nil {
		assembler = NewAssembler(0)
	}
	return &AnswerService{
		retriever: retriever,
		generator: generator,
		prompts:   prompts,
		assembler: assembler,
	}
}

// Ask retrieves context for the question and streams an answer grounded on
// it. The returned results are the retrieval hits the context was built
// from; callers can render them as sources. The stream is live when the
// error is nil and must be closed by the caller.
func (s *AnswerService) Ask(ctx context.Context, question string, opts domain.RetrieveOptions) (driven.AnswerStream, []domain.RetrievalResult, error) {
	if s.generator == nil {
		return nil, nil, fmt.Errorf("answer: %w", domain.ErrGeneratorUnavailable)
	}
	if s.retriever == nil {
		return nil, nil, fmt.Errorf("answer: no retriever configured: %w", domain.ErrInvalidQuery)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil, fmt.Errorf("answer: empty question: %w", domain.ErrInvalidQuery)
	}

	logger.Section("Question Answering")
	logger.Info("Question: %s", question)

	results, err := s.retriever.Retrieve(ctx, question, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("answer: retrieve context: %w", err)
	}

	contextBlock := s.assembler.Assemble(results)
	if contextBlock == NoContextMarker {
		logger.Warn("No relevant context found, answering without grounding")
	} else {
		logger.Info("Assembled context from %d chunk(s)", len(results))
	}

	prompt := fmt.Sprintf(s.promptTemplate(), contextBlock, question)

	stream, err := s.generator.Stream(ctx, prompt)
	if err != nil {
		return nil, nil, fmt.Errorf("answer: start generation: %w", err)
	}
	return stream, results, nil
}

// promptTemplate loads the answer prompt, falling back to the embedded
// default when no store is wired or loading fails.
func (s *AnswerService) promptTemplate() string {
	if s.prompts == nil {
		return fallbackAnswerPrompt
	}
	tmpl, err := s.prompts.Load(driven.PromptAnswer)
	if err != nil || strings.TrimSpace(tmpl) == "" {
		logger.Warn("Prompt store unavailable, using embedded default: %v", err)
		return fallbackAnswerPrompt
	}
	return tmpl
}
