package domain

// RawTranscript is the transcription collaborator's output in a uniform
// carrier shape. It is produced at the adapter boundary and consumed only
// by the utterance normaliser; the collaborator's own wire format never
// travels past that boundary.
type RawTranscript struct {
	// AudioURI is the original audio location (file path or URL).
	AudioURI string

	// Segments are the diarized speaker turns as delivered, in delivery
	// order. Unvalidated: timestamps may be inverted or overlapping and
	// text or speaker labels may be missing.
	Segments []RawSegment
}

// RawSegment is one unvalidated speaker turn from the transcription
// collaborator.
type RawSegment struct {
	// Speaker is the diarization label, e.g. "A". May be empty.
	Speaker string

	// StartMS and EndMS are millisecond offsets. Not yet validated.
	StartMS int64
	EndMS   int64

	// Text is the transcribed speech. May be empty.
	Text string
}
