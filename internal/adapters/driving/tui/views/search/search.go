// Package search provides the retrieval view for the TUI.
package search

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/components/input"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/components/list"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/components/status"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/keymap"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/messages"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/styles"
	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driving"
)

// View represents the retrieval view with input, results list, and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.ResultList
	statusbar *status.Bar

	retrievalService driving.RetrievalService
	ctx              context.Context

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = input mode (typing), false = results mode (navigating)
}

// NewView creates a new retrieval view.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	retrievalService driving.RetrievalService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:           s,
		keymap:           km,
		input:            input.NewQueryInput(s, "Search: ", "Enter search query..."),
		list:             list.NewResultList(s),
		statusbar:        status.NewBar(s, km),
		retrievalService: retrievalService,
		ctx:              context.Background(),
		width:            80,
		height:           24,
		ready:            false,
		focusInput:       true, // Start in input mode
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

// Update handles messages for the retrieval view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		v.ready = true
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.RetrieveCompleted:
		v.handleRetrieveCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	// Forward to input component
	var inputCmd tea.Cmd
	v.input, inputCmd = v.input.Update(msg)
	if inputCmd != nil {
		cmds = append(cmds, inputCmd)
	}

	// Forward to list component
	var listCmd tea.Cmd
	v.list, listCmd = v.list.Update(msg)
	if listCmd != nil {
		cmds = append(cmds, listCmd)
	}

	return v, tea.Batch(cmds...)
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	// Esc signals to go back to the ask view
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewAsk}
		}
	}

	// Enter in input mode submits the retrieval
	if msg.Type == tea.KeyEnter && v.focusInput {
		query := v.input.Value()
		if query == "" {
			return v, nil
		}
		v.statusbar.SetState(status.StateRetrieving)
		v.focusInput = false // Move to results mode after retrieval
		v.input.Blur()
		cmd := v.performRetrieve(query)
		return v, cmd
	}

	// Input mode: all keys go to input
	if v.focusInput {
		v.input, _ = v.input.Update(msg)
		return v, nil
	}

	// Results mode: handle navigation
	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyUp:
		v.list.MoveUp()
		return v, nil
	case tea.KeyDown:
		v.list.MoveDown()
		return v, nil
	}

	switch msg.String() {
	case "k":
		v.list.MoveUp()
		return v, nil
	case "j":
		v.list.MoveDown()
		return v, nil
	case "n":
		// New query: clear input and focus it
		v.focusInput = true
		v.input.Focus()
		v.input.SetValue("")
		return v, nil
	}

	return v, nil
}

// performRetrieve executes a retrieval and returns results.
func (v *View) performRetrieve(query string) tea.Cmd {
	return func() tea.Msg {
		if v.retrievalService == nil {
			return messages.ErrorOccurred{Err: ErrNoRetrievalService}
		}

		results, err := v.retrievalService.Retrieve(v.ctx, query, domain.RetrieveOptions{})
		if err != nil {
			return messages.RetrieveCompleted{Results: nil, Err: err}
		}
		return messages.RetrieveCompleted{Results: results, Err: nil}
	}
}

// handleRetrieveCompleted processes retrieval results.
func (v *View) handleRetrieveCompleted(msg messages.RetrieveCompleted) {
	if msg.Err != nil {
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return
	}

	v.err = nil
	v.list.SetResults(msg.Results)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetResultCount(len(msg.Results))

	// Switch to results mode after a successful retrieval
	v.focusInput = false
	v.input.Blur()
}

// View renders the retrieval view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)

	// Header
	header := v.styles.Title.Render("Verbatim Search")
	sections = append(sections, header, "")

	// Search input
	inputView := v.input.View()
	sections = append(sections, inputView, "")

	// Error display
	if v.err != nil {
		errView := v.styles.Error.Render("Error: " + v.err.Error())
		sections = append(sections, errView, "")
	}

	// Results list
	listView := v.list.View()
	sections = append(sections, listView)

	// Status bar at bottom
	sections = append(sections, "")
	statusView := v.statusbar.View()
	sections = append(sections, statusView)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	// Allocate space to components
	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-8) // Reserve space for header, input, status
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

// Query returns the current query.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the query.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Results returns the current retrieval results.
func (v *View) Results() []domain.RetrievalResult {
	return v.list.Results()
}

// SelectedIndex returns the index of the selected result.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// SelectedResult returns the currently selected result.
func (v *View) SelectedResult() *domain.RetrievalResult {
	return v.list.SelectedResult()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// ClearError clears the current error.
func (v *View) ClearError() {
	v.err = nil
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage("")
}

// Reset resets the view to initial input mode.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetResults(nil)
	v.err = nil
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage("")
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
