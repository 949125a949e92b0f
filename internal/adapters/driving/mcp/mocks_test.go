package mcp

import (
	"context"
	"io"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results []domain.RetrievalResult
	err     error
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	_ string,
	_ domain.RetrieveOptions,
) ([]domain.RetrievalResult, error) {
	return m.results, m.err
}

// mockAnswerStream yields a fixed token sequence.
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

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	tokens  []string
	results []domain.RetrievalResult
	err     error
}

func (m *mockAnswerService) Ask(
	_ context.Context,
	_ string,
	_ domain.RetrieveOptions,
) (driven.AnswerStream, []domain.RetrievalResult, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	return &mockAnswerStream{tokens: m.tokens}, m.results, nil
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	report *driving.IngestReport
	err    error
}

func (m *mockIngestService) Ingest(_ context.Context, _ *domain.RawTranscript) (*driving.IngestReport, error) {
	return m.report, m.err
}

func (m *mockIngestService) IngestFile(_ context.Context, _ string) (*driving.IngestReport, error) {
	return m.report, m.err
}

// mockStore is a minimal driven.VectorStore for resource tests.
type mockStore struct {
	meta   *domain.IndexMetadata
	chunks map[string]domain.Chunk
	count  int
}

func (m *mockStore) EnsureIndex(_ context.Context, _ int, _ domain.SimilarityMetric) error {
	return nil
}

func (m *mockStore) Upsert(_ context.Context, _ domain.Chunk, _ []float32) error {
	return nil
}

func (m *mockStore) Search(_ context.Context, _ []float32, _ int) ([]driven.VectorHit, error) {
	return nil, nil
}

func (m *mockStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	chunk, ok := m.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chunk, nil
}

func (m *mockStore) Metadata(_ context.Context) (*domain.IndexMetadata, error) {
	if m.meta == nil {
		return nil, domain.ErrNotFound
	}
	return m.meta, nil
}

func (m *mockStore) Count(_ context.Context) (int, error) {
	return m.count, nil
}

func (m *mockStore) Close() error { return nil }
