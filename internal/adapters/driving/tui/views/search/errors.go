package search

import "errors"

// Error definitions for the retrieval view.
var (
	// ErrNoRetrievalService indicates that no retrieval service was provided.
	ErrNoRetrievalService = errors.New("retrieval service is required")
)
