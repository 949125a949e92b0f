package driven

import (
	"context"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
)

// Transcriber converts an audio file into diarized speaker turns.
// This is an optional service - when nil, only already-transcribed input
// (JSON transcript files) can be ingested.
//
// The speech-to-text engine is a black box: its wire format is decoded
// inside the adapter and surfaced only as domain.RawTranscript.
type Transcriber interface {
	// Transcribe submits the audio at the given URI and blocks until the
	// collaborator delivers a finalized, speaker-separated transcript.
	Transcribe(ctx context.Context, audioURI string) (*domain.RawTranscript, error)

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error
}
