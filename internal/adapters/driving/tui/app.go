package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/messages"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/styles"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/views/ask"
	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/tui/views/search"
	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	// askView is the question answering view component.
	askView *ask.View

	// searchView is the retrieval view component.
	searchView *search.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	askView := ask.NewView(s, nil, ports.Answer)
	searchView := search.NewView(s, nil, ports.Retrieval)

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		askView:     askView,
		searchView:  searchView,
		currentView: messages.ViewAsk, // Start with the ask view
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.askView.WithContext(ctx)
	a.searchView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("verbatim - Transcript Q&A"),
	)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		// Forward to all views for proper sizing
		a.askView.SetDimensions(msg.Width, msg.Height)
		a.searchView.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		// Tab toggles between ask and search unless typing mid-stream
		if msg.String() == "tab" && a.currentView != messages.ViewHelp {
			if a.currentView == messages.ViewAsk {
				a.currentView = messages.ViewSearch
				return a, a.searchView.Init()
			}
			a.currentView = messages.ViewAsk
			return a, a.askView.Init()
		}

		if msg.String() == "?" && a.currentView != messages.ViewHelp {
			if a.currentView == messages.ViewAsk && a.askView.InputFocused() {
				break
			}
			if a.currentView == messages.ViewSearch && a.searchView.InputFocused() {
				break
			}
			a.currentView = messages.ViewHelp
			return a, nil
		}

		switch a.currentView {
		case messages.ViewAsk:
			a.askView, cmd = a.askView.Update(msg)
			a.err = a.askView.Err()
			return a, cmd

		case messages.ViewSearch:
			a.searchView, cmd = a.searchView.Update(msg)
			a.err = a.searchView.Err()
			return a, cmd

		case messages.ViewHelp:
			// Esc from help returns to the ask view
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewAsk
			}
			return a, nil
		}
		return a, nil

	case messages.RetrieveCompleted:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
		return a, cmd

	case messages.AnswerToken, messages.AnswerCompleted:
		a.askView, cmd = a.askView.Update(msg)
		a.err = a.askView.Err()
		return a, cmd

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewAsk:
			return a, a.askView.Init()
		case messages.ViewSearch:
			a.searchView.Reset()
			return a, a.searchView.Init()
		case messages.ViewHelp:
			// No initialisation needed
		}
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		switch a.currentView {
		case messages.ViewAsk:
			a.askView, cmd = a.askView.Update(msg)
		case messages.ViewSearch:
			a.searchView, cmd = a.searchView.Update(msg)
		case messages.ViewHelp:
			// Help view doesn't handle error messages
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Forward other messages to active view
	switch a.currentView {
	case messages.ViewAsk:
		a.askView, cmd = a.askView.Update(msg)
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
	case messages.ViewHelp:
		// Help view doesn't need to handle other messages
	}

	return a, cmd
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewAsk:
		return a.askView.View()
	case messages.ViewSearch:
		return a.searchView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.askView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return `Help

Navigation:
  tab         Switch between Ask and Search
  esc         Back / cancel
  ctrl+c      Quit

Ask:
  (type)      Enter a question
  enter       Submit question
  esc         Cancel a streaming answer

Search:
  (type)      Enter search query
  enter       Submit search

Results:
  j/k, ↑/↓    Navigate results
  n           New question or query

[esc] back`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Results returns the current retrieval results.
func (a *App) Results() []domain.RetrievalResult {
	return a.searchView.Results()
}

// Answer returns the current accumulated answer.
func (a *App) Answer() string {
	return a.askView.Answer()
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions (for testing).
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.askView.SetDimensions(width, height)
	a.searchView.SetDimensions(width, height)
}
