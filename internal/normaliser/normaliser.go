// Package normaliser converts the transcription collaborator's raw diarized
// output into the fixed internal utterance shape. Normalisation happens
// eagerly at the boundary; nothing downstream ever sees the raw form.
package normaliser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/logger"
)

// Result is the outcome of normalising one raw transcript.
type Result struct {
	// Utterances are the usable utterances in chronological order.
	Utterances []domain.Utterance

	// Dropped is the number of segments discarded as unusable.
	Dropped int
}

// Normalise validates and orders the raw segments of a transcript.
//
// Per-segment problems are corrected or dropped, never fatal: empty text
// drops the segment, a missing speaker label gets the "unknown" sentinel,
// inverted timestamps are swapped, and out-of-order segments are sorted by
// start time. The only fatal outcome is a transcript that is nil, empty, or
// yields zero usable utterances - that returns domain.ErrMalformedTranscript.
func Normalise(raw *domain.RawTranscript) (*Result, error) {
	if raw == nil || len(raw.Segments) == 0 {
		return nil, fmt.Errorf("normalise: %w: no segments", domain.ErrMalformedTranscript)
	}

	utterances := make([]domain.Utterance, 0, len(raw.Segments))
	dropped := 0

	for i, seg := range raw.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			logger.Debug("Dropping segment %d: empty text", i)
			dropped++
			continue
		}

		speaker := strings.TrimSpace(seg.Speaker)
		if speaker == "" {
			logger.Debug("Segment %d has no speaker label, using %q", i, domain.UnknownSpeaker)
			speaker = domain.UnknownSpeaker
		}

		start, end := seg.StartMS, seg.EndMS
		if end < start {
			logger.Debug("Segment %d has inverted timestamps (%d > %d), swapping", i, start, end)
			start, end = end, start
		}
		if start < 0 {
			start = 0
		}
		if end <= start {
			logger.Debug("Dropping segment %d: zero-length span at %dms", i, start)
			dropped++
			continue
		}

		utterances = append(utterances, domain.Utterance{
			SpeakerID: speaker,
			StartMS:   start,
			EndMS:     end,
			Text:      text,
		})
	}

	if len(utterances) == 0 {
		return nil, fmt.Errorf("normalise: %w: no usable utterances (%d dropped)", domain.ErrMalformedTranscript, dropped)
	}

	// Diarization output is assumed chronological; violations are corrected
	// here rather than rejected. The sort is stable so equal start times
	// keep their delivery order.
	sort.SliceStable(utterances, func(a, b int) bool {
		return utterances[a].StartMS < utterances[b].StartMS
	})

	if dropped > 0 {
		logger.Info("Normalised %d utterances, dropped %d unusable segments", len(utterances), dropped)
	}

	return &Result{Utterances: utterances, Dropped: dropped}, nil
}
