// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
)

// QueryChanged is sent when the query input changes.
type QueryChanged struct {
	Query string
}

// RetrieveRequested is a command to perform a retrieval.
type RetrieveRequested struct {
	Query   string
	Options domain.RetrieveOptions
}

// RetrieveCompleted carries retrieval results back to the model.
type RetrieveCompleted struct {
	Results []domain.RetrievalResult
	Err     error
}

// ResultSelected is sent when a retrieval result is selected.
type ResultSelected struct {
	Index int
}

// AnswerStarted signals that answer generation began. Sources carries the
// retrieval results the answer is grounded on.
type AnswerStarted struct {
	Sources []domain.RetrievalResult
}

// AnswerToken carries a single streamed token of the answer.
type AnswerToken struct {
	Token string
}

// AnswerCompleted signals the answer stream finished. Err is nil on a
// clean end of stream.
type AnswerCompleted struct {
	Err error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewAsk is the question answering view.
	ViewAsk ViewType = iota
	// ViewSearch is the retrieval input and results view.
	ViewSearch
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewAsk:
		return "ask"
	case ViewSearch:
		return "search"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
