package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/verbatim-labs/verbatim-cli/internal/chunker"
	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driving"
	"github.com/verbatim-labs/verbatim-cli/internal/logger"
	"github.com/verbatim-labs/verbatim-cli/internal/normaliser"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService drives the write path: normalise, chunk, embed, upsert.
type IngestService struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	chunker  *chunker.Chunker
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	ck *chunker.Chunker,
) *IngestService {
	if ck == nil {
		ck = chunker.New()
	}
	return &IngestService{
		embedder: embedder,
		store:    store,
		chunker:  ck,
	}
}

// transcriptFile is the on-disk diarized transcript format.
type transcriptFile struct {
	AudioURI string `json:"audio_uri,omitempty"`
	Segments []struct {
		Speaker string `json:"speaker"`
		StartMS int64  `json:"start_ms"`
		EndMS   int64  `json:"end_ms"`
		Text    string `json:"text"`
	} `json:"segments"`
}

// Ingest runs the full write path for one raw transcript. Partial embedding
// failures do not abort the run: successfully embedded chunks are upserted
// and the failed ones are reported for re-run.
func (s *IngestService) Ingest(ctx context.Context, raw *domain.RawTranscript) (*driving.IngestReport, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("ingest: %w", domain.ErrEmbeddingUnavailable)
	}
	if s.store == nil {
		return nil, errors.New("ingest: vector store unavailable")
	}

	logger.Section("Transcript Ingestion")

	// Normalise
	norm, err := normaliser.Normalise(raw)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	logger.Info("Normalised: %d utterances usable, %d dropped", len(norm.Utterances), norm.Dropped)

	transcriptID := transcriptIDFor(raw)
	logger.Debug("Transcript ID: %s", transcriptID)

	// Chunk
	chunks, err := s.chunker.Chunk(transcriptID, norm.Utterances)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	logger.Info("Chunked into %d chunks", len(chunks))

	report := &driving.IngestReport{
		TranscriptID: transcriptID,
		Utterances:   len(norm.Utterances),
		Dropped:      norm.Dropped,
	}
	if len(chunks) == 0 {
		return report, nil
	}

	// The index must exist with the embedder's dimension before any upsert.
	if err := s.store.EnsureIndex(ctx, s.embedder.Dimensions(), domain.MetricCosine); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	// Embed. The embedder splits into sub-batches, runs them concurrently
	// and retries internally; a partial failure surfaces as
	// *domain.EmbeddingError with the failed input indices.
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, embedErr := s.embedder.EmbedBatch(ctx, texts)
	failed := make(map[int]bool)
	if embedErr != nil {
		var batchErr *domain.EmbeddingError
		if !errors.As(embedErr, &batchErr) {
			return nil, fmt.Errorf("ingest: embed chunks: %w", embedErr)
		}
		for _, idx := range batchErr.FailedIndices {
			failed[idx] = true
		}
		logger.Warn("Embedding failed for %d of %d chunks: %v", len(failed), len(chunks), batchErr.Err)
	}

	// Upsert what embedded successfully. Chunk IDs are deterministic, so a
	// re-run of the same transcript retries exactly the failed ones.
	for i, chunk := range chunks {
		if failed[i] {
			report.FailedChunkIDs = append(report.FailedChunkIDs, chunk.ID)
			continue
		}
		if err := s.store.Upsert(ctx, chunk, vectors[i]); err != nil {
			return report, fmt.Errorf("ingest: upsert chunk %q: %w", chunk.ID, err)
		}
		report.ChunksStored++
	}

	logger.Info("Stored %d chunks (%d failed)", report.ChunksStored, len(report.FailedChunkIDs))
	return report, nil
}

// IngestFile reads a diarized transcript JSON file and ingests it.
func (s *IngestService) IngestFile(ctx context.Context, path string) (*driving.IngestReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest file: %w", err)
	}

	var tf transcriptFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("ingest file %q: %w: %v", path, domain.ErrMalformedTranscript, err)
	}

	raw := &domain.RawTranscript{AudioURI: tf.AudioURI}
	if raw.AudioURI == "" {
		raw.AudioURI = path
	}
	for _, seg := range tf.Segments {
		raw.Segments = append(raw.Segments, domain.RawSegment{
			Speaker: seg.Speaker,
			StartMS: seg.StartMS,
			EndMS:   seg.EndMS,
			Text:    seg.Text,
		})
	}

	return s.Ingest(ctx, raw)
}

// transcriptIDFor derives a stable transcript ID. Transcripts with a known
// audio location get a deterministic ID so re-ingesting the same recording
// replaces its chunks instead of duplicating them; anonymous transcripts
// get a random one.
func transcriptIDFor(raw *domain.RawTranscript) string {
	if raw.AudioURI != "" {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(raw.AudioURI)).String()
	}
	return uuid.NewString()
}
