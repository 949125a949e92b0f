// Package tui provides an interactive terminal user interface for verbatim.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval provides semantic retrieval over stored transcripts.
	Retrieval driving.RetrievalService

	// Answer provides grounded question answering. Optional: when nil
	// the ask view reports that generation is not configured.
	Answer driving.AnswerService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(retrieval driving.RetrievalService, answer driving.AnswerService) *Ports {
	return &Ports{
		Retrieval: retrieval,
		Answer:    answer,
	}
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
