package domain

import (
	"fmt"
	"time"
)

// UnknownSpeaker is assigned when the transcription collaborator did not
// attach a speaker label to a segment.
const UnknownSpeaker = "unknown"

// Utterance is one speaker's continuous speech segment with millisecond
// timestamps. Utterances are immutable once produced by normalisation;
// ordering is chronological by StartMS.
type Utterance struct {
	// SpeakerID identifies the speaker, e.g. "Speaker A".
	SpeakerID string

	// StartMS is the segment start offset from the beginning of the
	// recording, in milliseconds.
	StartMS int64

	// EndMS is the segment end offset in milliseconds. Always > StartMS
	// for a valid utterance.
	EndMS int64

	// Text is the transcribed speech. Never empty after normalisation.
	Text string
}

// Validate reports whether the utterance satisfies the normalised-shape
// invariants.
func (u Utterance) Validate() error {
	if u.Text == "" {
		return fmt.Errorf("utterance [%d-%d]: %w: empty text", u.StartMS, u.EndMS, ErrInvalidInput)
	}
	if u.StartMS < 0 {
		return fmt.Errorf("utterance %q: %w: negative start %d", truncateForError(u.Text), ErrInvalidInput, u.StartMS)
	}
	if u.EndMS <= u.StartMS {
		return fmt.Errorf("utterance %q: %w: end %d not after start %d", truncateForError(u.Text), ErrInvalidInput, u.EndMS, u.StartMS)
	}
	return nil
}

// Duration returns the length of the utterance.
func (u Utterance) Duration() time.Duration {
	return time.Duration(u.EndMS-u.StartMS) * time.Millisecond
}

// FormatTimestamp renders a millisecond offset as a human-readable
// [h:]mm:ss clock value for context assembly and display.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func truncateForError(s string) string {
	const max = 32
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
