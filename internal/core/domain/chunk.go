package domain

import "strings"

// Chunk is an embeddable text unit composed of one or more utterances.
// Chunks are the unit of storage and retrieval: self-contained enough to be
// independently retrievable, bounded in size for embedding-model limits.
type Chunk struct {
	// ID is unique within a transcript. IDs are deterministic
	// ("<transcript-id>:<ordinal>") so re-ingesting the same transcript
	// upserts rather than duplicates.
	ID string

	// TranscriptID links to the transcript this chunk was built from.
	TranscriptID string

	// SpeakerIDs are the speakers covered by this chunk, in order of first
	// appearance. More than one entry only occurs when a context window
	// folds neighbouring turns in.
	SpeakerIDs []string

	// Utterances are the covered utterances in chronological order,
	// including any context-window utterances folded in at the front.
	Utterances []Utterance

	// Text is the concatenated utterance text.
	Text string

	// StartMS and EndMS span exactly the covered utterances.
	StartMS int64
	EndMS   int64

	// Ordinal is the chunk's position within the transcript.
	Ordinal int

	// Truncated marks a chunk built from a single utterance that exceeded
	// the configured maximum size. The text is kept whole; the flag lets
	// callers know the embedding may cover an over-budget input.
	Truncated bool
}

// PrimarySpeaker returns the chunk's dominant speaker: the speaker of the
// non-context utterances, or the first known speaker.
func (c Chunk) PrimarySpeaker() string {
	if len(c.SpeakerIDs) == 0 {
		return UnknownSpeaker
	}
	return c.SpeakerIDs[len(c.SpeakerIDs)-1]
}

// SpeakerLabel renders the covered speakers for display, e.g.
// "Speaker A" or "Speaker A, Speaker B".
func (c Chunk) SpeakerLabel() string {
	if len(c.SpeakerIDs) == 0 {
		return UnknownSpeaker
	}
	return strings.Join(c.SpeakerIDs, ", ")
}

// Validate reports whether the chunk satisfies its structural invariants.
func (c Chunk) Validate() error {
	if c.ID == "" {
		return ErrInvalidInput
	}
	if c.Text == "" {
		return ErrInvalidInput
	}
	if c.EndMS <= c.StartMS {
		return ErrInvalidInput
	}
	return nil
}
