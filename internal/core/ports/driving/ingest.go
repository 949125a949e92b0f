package driving

import (
	"context"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
)

// IngestService drives the write path: normalise → chunk → embed → upsert.
type IngestService interface {
	// Ingest runs the full write path for one raw transcript. Partial
	// embedding failures do not abort the run: successfully embedded
	// chunks are upserted and the failed ones are reported for re-run.
	Ingest(ctx context.Context, raw *domain.RawTranscript) (*IngestReport, error)

	// IngestFile reads a diarized transcript JSON file and ingests it.
	IngestFile(ctx context.Context, path string) (*IngestReport, error)
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	// TranscriptID identifies the ingested transcript.
	TranscriptID string

	// Utterances is the count of usable utterances after normalisation.
	Utterances int

	// Dropped is the count of malformed utterances discarded.
	Dropped int

	// ChunksStored is the count of chunks embedded and upserted.
	ChunksStored int

	// FailedChunkIDs lists chunks whose embeddings could not be produced
	// after retries. Re-running the same transcript retries exactly these
	// (upserts are idempotent by chunk ID).
	FailedChunkIDs []string
}
