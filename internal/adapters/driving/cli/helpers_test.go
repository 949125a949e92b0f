package cli

import (
	"context"
	"io"

	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driven/storage/memory"
	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driving"
	"github.com/verbatim-labs/verbatim-cli/internal/core/services"
)

// setupTestServices swaps the package-level services with mocks and
// returns a cleanup restoring the previous wiring.
func setupTestServices() func() {
	prevConfig := configStore
	prevVector := vectorStore
	prevEmbedder := embedder
	prevTranscriber := transcriber
	prevSettings := settingsService
	prevIngest := ingestService
	prevRetrieval := retrievalSvc
	prevAnswer := answerService

	configStore = memory.NewConfigStore()
	vectorStore = &mockVectorStore{}
	embedder = &mockEmbedder{dims: 768}
	transcriber = nil
	settingsService = services.NewSettingsService(configStore)
	ingestService = &mockIngestService{report: &driving.IngestReport{
		TranscriptID: "tr-1",
		ChunksStored: 2,
		Utterances:   4,
	}}
	retrievalSvc = &mockRetrievalService{results: cliTestResults()}
	answerService = &mockAnswerService{tokens: []string{"All ", "good."}, results: cliTestResults()}

	return func() {
		configStore = prevConfig
		vectorStore = prevVector
		embedder = prevEmbedder
		transcriber = prevTranscriber
		settingsService = prevSettings
		ingestService = prevIngest
		retrievalSvc = prevRetrieval
		answerService = prevAnswer
	}
}

func cliTestResults() []domain.RetrievalResult {
	return []domain.RetrievalResult{
		{
			Chunk: domain.Chunk{
				ID:           "tr-1:0",
				TranscriptID: "tr-1",
				SpeakerIDs:   []string{"Speaker A"},
				Text:         "Speaker A: The deadline moved to Friday.",
				StartMS:      0,
				EndMS:        8000,
			},
			Score: 0.91,
			Rank:  1,
		},
	}
}

type mockRetrievalService struct {
	results  []domain.RetrievalResult
	err      error
	lastOpts domain.RetrieveOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	_ string,
	opts domain.RetrieveOptions,
) ([]domain.RetrievalResult, error) {
	m.lastOpts = opts
	return m.results, m.err
}

type mockAnswerStream struct {
	tokens []string
	pos    int
}

func (m *mockAnswerStream) Recv() (string, error) {
	if m.pos >= len(m.tokens) {
		return "", io.EOF
	}
	tok := m.tokens[m.pos]
	m.pos++
	return tok, nil
}

func (m *mockAnswerStream) Close() error { return nil }

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

type mockIngestService struct {
	report *driving.IngestReport
	err    error
	calls  int
}

func (m *mockIngestService) Ingest(_ context.Context, _ *domain.RawTranscript) (*driving.IngestReport, error) {
	m.calls++
	return m.report, m.err
}

func (m *mockIngestService) IngestFile(_ context.Context, _ string) (*driving.IngestReport, error) {
	m.calls++
	return m.report, m.err
}

type mockVectorStore struct {
	meta       *domain.IndexMetadata
	count      int
	ensureErr  error
	ensuredDim int
}

func (m *mockVectorStore) EnsureIndex(_ context.Context, dimension int, metric domain.SimilarityMetric) error {
	if m.ensureErr != nil {
		return m.ensureErr
	}
	m.ensuredDim = dimension
	m.meta = &domain.IndexMetadata{
		Name:      "chunks",
		Dimension: dimension,
		Metric:    metric,
		Status:    domain.IndexReady,
	}
	return nil
}

func (m *mockVectorStore) Upsert(_ context.Context, _ domain.Chunk, _ []float32) error {
	return nil
}

func (m *mockVectorStore) Search(_ context.Context, _ []float32, _ int) ([]driven.VectorHit, error) {
	return nil, nil
}

func (m *mockVectorStore) GetChunk(_ context.Context, _ string) (*domain.Chunk, error) {
	return nil, domain.ErrNotFound
}

func (m *mockVectorStore) Metadata(_ context.Context) (*domain.IndexMetadata, error) {
	if m.meta == nil {
		return nil, domain.ErrNotFound
	}
	return m.meta, nil
}

func (m *mockVectorStore) Count(_ context.Context) (int, error) {
	return m.count, nil
}

func (m *mockVectorStore) Close() error { return nil }

type mockEmbedder struct {
	dims int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, m.dims), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, m.dims)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }

func (m *mockEmbedder) ModelName() string { return "mock-embed" }

func (m *mockEmbedder) Ping(_ context.Context) error { return nil }

func (m *mockEmbedder) Close() error { return nil }
