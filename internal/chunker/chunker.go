// Package chunker groups normalised utterances into embeddable chunks.
//
// The policy is speaker-turn chunking: consecutive utterances by the same
// speaker are grouped up to a maximum character length and a maximum
// utterance count. A speaker change closes the chunk; an optional context
// window folds the last utterances of the previous turn into the next chunk
// so embeddings keep conversational continuity across turn boundaries.
//
// Chunking is deterministic: identical input and configuration always yield
// identical chunk boundaries.
package chunker

import (
	"fmt"
	"strings"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
)

// DefaultMaxChars is the default chunk size budget in characters.
const DefaultMaxChars = 2000

// DefaultMaxUtterances is the default cap on utterances per chunk.
const DefaultMaxUtterances = 12

// Chunker splits utterance sequences into speaker-turn chunks.
type Chunker struct {
	maxChars      int
	maxUtterances int
	contextWindow int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxChars sets the chunk size budget in characters.
func WithMaxChars(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithMaxUtterances caps the number of utterances per chunk.
func WithMaxUtterances(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxUtterances = n
		}
	}
}

// WithContextWindow folds the last n utterances preceding a speaker change
// into the following chunk as leading context. Zero disables folding.
func WithContextWindow(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.contextWindow = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxChars:      DefaultMaxChars,
		maxUtterances: DefaultMaxUtterances,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// group is an in-progress chunk: a core run of same-speaker utterances plus
// any context utterances folded in at the front.
type group struct {
	context []domain.Utterance
	core    []domain.Utterance
	chars   int
}

// Chunk materializes the full chunk sequence for one transcript.
// The output is finite and fully built before returning, so the write path
// can batch embeddings over the complete set.
func (c *Chunker) Chunk(transcriptID string, utterances []domain.Utterance) ([]domain.Chunk, error) {
	if transcriptID == "" {
		return nil, fmt.Errorf("chunk: %w: empty transcript id", domain.ErrInvalidInput)
	}
	if len(utterances) == 0 {
		return nil, nil
	}

	var chunks []domain.Chunk
	var g group

	flush := func() {
		if len(g.core) == 0 {
			return
		}
		chunks = append(chunks, c.build(transcriptID, len(chunks), g, false))
		g = group{}
	}

	for i, utt := range utterances {
		if err := utt.Validate(); err != nil {
			return nil, fmt.Errorf("chunk: utterance %d: %w", i, err)
		}

		// The speaker change is judged against the previous utterance, not
		// the open group, so a turn boundary still folds context when the
		// preceding chunk closed for another reason (size, oversize).
		speakerChange := i > 0 && utterances[i-1].SpeakerID != utt.SpeakerID

		// An utterance that alone exceeds the budget becomes its own
		// chunk, marked truncated. The text is never cut.
		if len(utt.Text) > c.maxChars {
			flush()
			oversize := group{core: []domain.Utterance{utt}, chars: len(utt.Text)}
			if speakerChange {
				oversize.context = c.contextBefore(utterances, i)
			}
			chunks = append(chunks, c.build(transcriptID, len(chunks), oversize, true))
			g = group{}
			continue
		}

		if len(g.core) > 0 {
			sameSpeaker := g.core[len(g.core)-1].SpeakerID == utt.SpeakerID
			fits := g.chars+len(utt.Text) <= c.maxChars && len(g.core) < c.maxUtterances
			if !sameSpeaker || !fits {
				flush()
			}
		}

		if len(g.core) == 0 && speakerChange {
			g.context = c.contextBefore(utterances, i)
		}
		g.core = append(g.core, utt)
		g.chars += len(utt.Text)
	}
	flush()

	return chunks, nil
}

// contextBefore returns up to contextWindow utterances preceding index i.
func (c *Chunker) contextBefore(utterances []domain.Utterance, i int) []domain.Utterance {
	if c.contextWindow <= 0 {
		return nil
	}
	from := i - c.contextWindow
	if from < 0 {
		from = 0
	}
	if from == i {
		return nil
	}
	ctx := make([]domain.Utterance, i-from)
	copy(ctx, utterances[from:i])
	return ctx
}

// build renders a group into a chunk. Chunk IDs are deterministic
// ("<transcript>:<ordinal>") so re-ingesting a transcript upserts in place.
func (c *Chunker) build(transcriptID string, ordinal int, g group, truncated bool) domain.Chunk {
	covered := make([]domain.Utterance, 0, len(g.context)+len(g.core))
	covered = append(covered, g.context...)
	covered = append(covered, g.core...)

	var speakers []string
	seen := make(map[string]bool)
	lines := make([]string, 0, len(covered))
	for _, utt := range covered {
		if !seen[utt.SpeakerID] {
			seen[utt.SpeakerID] = true
			speakers = append(speakers, utt.SpeakerID)
		}
		lines = append(lines, utt.SpeakerID+": "+utt.Text)
	}

	// The covered span runs from the first utterance (context included) to
	// the last. Context-window duplication is the only permitted overlap
	// between neighbouring chunks.
	return domain.Chunk{
		ID:           fmt.Sprintf("%s:%d", transcriptID, ordinal),
		TranscriptID: transcriptID,
		SpeakerIDs:   speakers,
		Utterances:   covered,
		Text:         strings.Join(lines, "\n"),
		StartMS:      covered[0].StartMS,
		EndMS:        covered[len(covered)-1].EndMS,
		Ordinal:      ordinal,
		Truncated:    truncated,
	}
}
