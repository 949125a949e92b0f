package ask

import "errors"

// Error definitions for the ask view.
var (
	// ErrNoAnswerService indicates that answer generation is not configured.
	ErrNoAnswerService = errors.New("answer generation is not configured")
)
