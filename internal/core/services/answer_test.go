package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
)

// mockRetriever implements driving.RetrievalService for testing.
type mockRetriever struct {
	results []domain.RetrievalResult
	err     error
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, _ domain.RetrieveOptions) ([]domain.RetrievalResult, error) {
	return m.results, m.err
}

// mockAnswerStream implements driven.AnswerStream for testing.
type mockAnswerStream struct {
	tokens []string
	pos    int
	closed bool
}

func (m *mockAnswerStream) Recv() (string, error) {
	if m.closed {
		return "", domain.ErrStreamClosed
	}
	if m.pos >= len(m.tokens) {
		return "", io.EOF
	}
	tok := m.tokens[m.pos]
	m.pos++
	return tok, nil
}

func (m *mockAnswerStream) Close() error {
	m.closed = true
	return nil
}

// mockGenerator implements driven.AnswerGenerator for testing.
type mockGenerator struct {
	tokens     []string
	streamErr  error
	lastPrompt string
}

func (m *mockGenerator) Stream(_ context.Context, prompt string) (driven.AnswerStream, error) {
	m.lastPrompt = prompt
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	return &mockAnswerStream{tokens: m.tokens}, nil
}

func (m *mockGenerator) ModelName() string            { return "mock-gen" }
func (m *mockGenerator) Ping(_ context.Context) error { return nil }
func (m *mockGenerator) Close() error                 { return nil }

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
	loadErr error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.loadErr != nil {
		return "", m.loadErr
	}
	return m.prompts[name], nil
}

func (m *mockPromptStore) Reload() {}

// drainStream reads the stream to completion.
func drainStream(t *testing.T, stream driven.AnswerStream) string {
	t.Helper()
	var b strings.Builder
	for {
		tok, err := stream.Recv()
		if err == io.EOF {
			return b.String()
		}
		require.NoError(t, err)
		b.WriteString(tok)
	}
}

// TestAsk_StreamsGroundedAnswer tests the full ask path with context.
func TestAsk_StreamsGroundedAnswer(t *testing.T) {
	retriever := &mockRetriever{results: []domain.RetrievalResult{
		resultAt(1, testChunk("tr-1:0", "alice", "revenue is up twelve percent")),
	}}
	generator := &mockGenerator{tokens: []string{"Revenue ", "rose ", "12%."}}

	svc := NewAnswerService(retriever, generator, nil, nil)
	stream, results, err := svc.Ask(context.Background(), "how did revenue do?", domain.RetrieveOptions{})
	require.NoError(t, err)
	defer stream.Close()

	require.Len(t, results, 1)
	assert.Equal(t, "Revenue rose 12%.", drainStream(t, stream))

	// The prompt carries both the assembled context and the question.
	assert.Contains(t, generator.lastPrompt, "revenue is up twelve percent")
	assert.Contains(t, generator.lastPrompt, "how did revenue do?")
	assert.NotContains(t, generator.lastPrompt, NoContextMarker)
}

// TestAsk_NoContextStillAnswers tests that empty retrieval inserts the
// no-context marker instead of failing.
func TestAsk_NoContextStillAnswers(t *testing.T) {
	generator := &mockGenerator{tokens: []string{"I don't know."}}
	svc := NewAnswerService(&mockRetriever{}, generator, nil, nil)

	stream, results, err := svc.Ask(context.Background(), "anything?", domain.RetrieveOptions{})
	require.NoError(t, err)
	defer stream.Close()

	assert.Empty(t, results)
	assert.Contains(t, generator.lastPrompt, NoContextMarker)
}

// TestAsk_UsesCustomPrompt tests that a stored prompt template wins over the
// embedded default.
func TestAsk_UsesCustomPrompt(t *testing.T) {
	prompts := &mockPromptStore{prompts: map[string]string{
		driven.PromptAnswer: "CONTEXT:%s QUESTION:%s",
	}}
	generator := &mockGenerator{tokens: []string{"ok"}}
	svc := NewAnswerService(&mockRetriever{}, generator, prompts, nil)

	stream, _, err := svc.Ask(context.Background(), "q?", domain.RetrieveOptions{})
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "CONTEXT:"+NoContextMarker+" QUESTION:q?", generator.lastPrompt)
}

// TestAsk_PromptStoreFailureFallsBack tests the embedded default template.
func TestAsk_PromptStoreFallsBack(t *testing.T) {
	prompts := &mockPromptStore{loadErr: domain.ErrNotFound}
	generator := &mockGenerator{tokens: []string{"ok"}}
	svc := NewAnswerService(&mockRetriever{}, generator, prompts, nil)

	stream, _, err := svc.Ask(context.Background(), "q?", domain.RetrieveOptions{})
	require.NoError(t, err)
	defer stream.Close()

	assert.Contains(t, generator.lastPrompt, "--- CONTEXT ---")
}

// TestAsk_NoGenerator tests the disabled-generation error.
func TestAsk_NoGenerator(t *testing.T) {
	svc := NewAnswerService(&mockRetriever{}, nil, nil, nil)

	_, _, err := svc.Ask(context.Background(), "q?", domain.RetrieveOptions{})
	assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
}

// TestAsk_EmptyQuestion tests question validation.
func TestAsk_EmptyQuestion(t *testing.T) {
	svc := NewAnswerService(&mockRetriever{}, &mockGenerator{}, nil, nil)

	_, _, err := svc.Ask(context.Background(), "   ", domain.RetrieveOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

// TestAsk_RetrieveFailureAborts tests that retrieval errors stop the ask.
func TestAsk_RetrieveFailureAborts(t *testing.T) {
	retriever := &mockRetriever{err: domain.ErrIndexNotReady}
	svc := NewAnswerService(retriever, &mockGenerator{}, nil, nil)

	_, _, err := svc.Ask(context.Background(), "q?", domain.RetrieveOptions{})
	assert.ErrorIs(t, err, domain.ErrIndexNotReady)
}

// TestAsk_GeneratorFailureSurfaces tests that a stream start failure surfaces.
func TestAsk_GeneratorFailureSurfaces(t *testing.T) {
	generator := &mockGenerator{streamErr: domain.ErrGeneratorUnavailable}
	svc := NewAnswerService(&mockRetriever{}, generator, nil, nil)

	_, _, err := svc.Ask(context.Background(), "q?", domain.RetrieveOptions{})
	assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
}
