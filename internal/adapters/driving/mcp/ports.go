package mcp

import (
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval provides semantic search over stored transcript chunks.
	Retrieval driving.RetrievalService

	// Answer provides question answering grounded on retrieved chunks.
	// Optional: when nil the ask tool reports that generation is disabled.
	Answer driving.AnswerService

	// Ingest stores new transcripts. Optional: when nil the ingest tool
	// is not registered.
	Ingest driving.IngestService

	// Store backs the index and chunk resources. Optional: when nil those
	// resources report not found.
	Store driven.VectorStore
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// Answer and Ingest are optional
	return nil
}
