package services

import (
	"fmt"
	"strings"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/logger"
)

// NoContextMarker is handed to the generator when retrieval found nothing,
// so the model knows it is answering without grounding.
const NoContextMarker = "No context information was provided"

// blockSeparator visually divides chunks in the assembled context.
const blockSeparator = "\n\n------\n\n"

// DefaultContextBudget caps the assembled context size in characters.
const DefaultContextBudget = 12000

// Assembler renders ranked retrieval results into a single context string
// for the answer prompt.
type Assembler struct {
	maxChars int
}

// NewAssembler creates an assembler with the given character budget.
// Zero or negative selects DefaultContextBudget.
func NewAssembler(maxChars int) *Assembler {
	if maxChars <= 0 {
		maxChars = DefaultContextBudget
	}
	return &Assembler{maxChars: maxChars}
}

// Assemble renders results in rank order, each block annotated with its
// speakers and time span. A chunk that would overflow the budget is skipped
// whole rather than cut mid-utterance; later, smaller chunks may still fit.
// Empty input yields the no-context marker.
func (a *Assembler) Assemble(results []domain.RetrievalResult) string {
	if len(results) == 0 {
		return NoContextMarker
	}

	var b strings.Builder
	included := 0
	for _, res := range results {
		block := renderBlock(res.Chunk)

		needed := len(block)
		if included > 0 {
			needed += len(blockSeparator)
		}
		if b.Len()+needed > a.maxChars {
			logger.Debug("Context budget: skipping chunk %s (%d chars would exceed %d)",
				res.Chunk.ID, needed, a.maxChars)
			continue
		}

		if included > 0 {
			b.WriteString(blockSeparator)
		}
		b.WriteString(block)
		included++
	}

	if included == 0 {
		return NoContextMarker
	}
	return b.String()
}

// renderBlock formats one chunk with its provenance header.
func renderBlock(chunk domain.Chunk) string {
	header := fmt.Sprintf("[%s | %s - %s]",
		chunk.SpeakerLabel(),
		domain.FormatTimestamp(chunk.StartMS),
		domain.FormatTimestamp(chunk.EndMS))
	return header + "\n" + chunk.Text
}
