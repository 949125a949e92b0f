// Package ask provides the question answering view for the TUI.
package ask

import (
	"context"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/components/input"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/components/list"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/components/status"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/keymap"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/messages"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/styles"
	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driving"
)

// started carries the opened answer stream back into the update loop.
type started struct {
	stream  driven.AnswerStream
	sources []domain.RetrievalResult
}

// View represents the ask view with input, streamed answer, and sources.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	sources   *list.ResultList
	statusbar *status.Bar

	answerService driving.AnswerService
	ctx           context.Context

	// stream is the in-flight answer stream, nil when idle.
	stream driven.AnswerStream
	answer strings.Builder

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool
}

// NewView creates a new ask view.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	answerService driving.AnswerService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewQueryInput(s, "Ask: ", "Ask a question about your transcripts..."),
		sources:       list.NewResultList(s),
		statusbar:     status.NewBar(s, km),
		answerService: answerService,
		ctx:           context.Background(),
		width:         80,
		height:        24,
		ready:         false,
		focusInput:    true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		v.ready = true
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case started:
		v.stream = msg.stream
		v.sources.SetResults(msg.sources)
		v.statusbar.SetState(status.StateAnswering)
		v.statusbar.SetResultCount(len(msg.sources))
		return v, readToken(v.stream)

	case messages.AnswerToken:
		v.answer.WriteString(msg.Token)
		if v.stream == nil {
			return v, nil
		}
		return v, readToken(v.stream)

	case messages.AnswerCompleted:
		v.closeStream()
		if msg.Err != nil {
			v.err = msg.Err
			v.statusbar.SetState(status.StateError)
			v.statusbar.SetMessage(msg.Err.Error())
		} else {
			v.statusbar.SetState(status.StateResults)
		}
		return v, nil

	case messages.ErrorOccurred:
		v.closeStream()
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	// Esc cancels an in-flight answer, otherwise starts a fresh question
	if msg.Type == tea.KeyEsc {
		if v.stream != nil {
			v.closeStream()
			v.statusbar.SetState(status.StateReady)
			v.statusbar.SetMessage("Cancelled")
			return v, nil
		}
		v.Reset()
		return v, nil
	}

	if msg.Type == tea.KeyEnter && v.focusInput {
		question := v.input.Value()
		if question == "" || v.stream != nil {
			return v, nil
		}
		v.answer.Reset()
		v.err = nil
		v.sources.SetResults(nil)
		v.statusbar.SetState(status.StateRetrieving)
		v.focusInput = false
		v.input.Blur()
		return v, v.performAsk(question)
	}

	if v.focusInput {
		v.input, _ = v.input.Update(msg)
		return v, nil
	}

	switch msg.String() {
	case "n":
		if v.stream != nil {
			return v, nil
		}
		v.focusInput = true
		v.input.Focus()
		v.input.SetValue("")
		return v, nil
	case "k":
		v.sources.MoveUp()
		return v, nil
	case "j":
		v.sources.MoveDown()
		return v, nil
	}

	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyUp:
		v.sources.MoveUp()
	case tea.KeyDown:
		v.sources.MoveDown()
	}

	return v, nil
}

// performAsk opens the answer stream for a question.
func (v *View) performAsk(question string) tea.Cmd {
	return func() tea.Msg {
		if v.answerService == nil {
			return messages.ErrorOccurred{Err: ErrNoAnswerService}
		}

		stream, sources, err := v.answerService.Ask(v.ctx, question, domain.RetrieveOptions{})
		if err != nil {
			return messages.ErrorOccurred{Err: err}
		}
		return started{stream: stream, sources: sources}
	}
}

// readToken reads the next token from the stream.
func readToken(stream driven.AnswerStream) tea.Cmd {
	return func() tea.Msg {
		token, err := stream.Recv()
		if err == io.EOF {
			return messages.AnswerCompleted{}
		}
		if err != nil {
			return messages.AnswerCompleted{Err: err}
		}
		return messages.AnswerToken{Token: token}
	}
}

// closeStream closes and clears the in-flight stream if any.
func (v *View) closeStream() {
	if v.stream != nil {
		v.stream.Close() //nolint:errcheck // Best-effort cleanup
		v.stream = nil
	}
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)

	header := v.styles.Title.Render("Verbatim Ask")
	sections = append(sections, header, "")

	sections = append(sections, v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.answer.Len() > 0 {
		answerView := v.styles.Answer.Width(v.width - 4).Render(v.answer.String())
		sections = append(sections, v.styles.Subtitle.Render("Answer"), answerView, "")
	}

	if !v.sources.IsEmpty() {
		sections = append(sections, v.styles.Subtitle.Render("Sources"), v.sources.View())
	}

	sections = append(sections, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.sources.SetDimensions(width, height/3)
	v.statusbar.SetWidth(width)
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Question returns the current question.
func (v *View) Question() string {
	return v.input.Value()
}

// SetQuestion sets the question.
func (v *View) SetQuestion(question string) {
	v.input.SetValue(question)
}

// Answer returns the accumulated answer text.
func (v *View) Answer() string {
	return v.answer.String()
}

// Sources returns the retrieval results grounding the answer.
func (v *View) Sources() []domain.RetrievalResult {
	return v.sources.Results()
}

// Streaming returns whether an answer stream is in flight.
func (v *View) Streaming() bool {
	return v.stream != nil
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Reset resets the view to initial input mode.
func (v *View) Reset() {
	v.closeStream()
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.answer.Reset()
	v.sources.SetResults(nil)
	v.err = nil
	v.statusbar.Clear()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
