// Package tui hosts the securities search box in a terminal.
package tui

import (
	"context"
	"strings"
	"sync"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	runewidth "github.com/mattn/go-runewidth"

	"securities-search/autocomplete"
	"securities-search/store"
)

// Loader is the part of the trie store the search box needs.
type Loader interface {
	EnsureLoaded(ctx context.Context) error
	Snapshot() store.Snapshot
	ClearError()
}

// runMsg carries a scheduled callback into the event loop.
type runMsg struct{ f func() }

// loadedMsg reports the end of a trie load.
type loadedMsg struct{ err error }

// LoopScheduler delivers debounce callbacks through the bubbletea event
// loop so that controller callbacks run on the same goroutine as key
// handling.
type LoopScheduler struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// Attach routes callbacks to send, normally (*tea.Program).Send.
func (s *LoopScheduler) Attach(send func(tea.Msg)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = send
}

func (s *LoopScheduler) AfterFunc(d time.Duration, f func()) autocomplete.Timer {
	return time.AfterFunc(d, func() {
		s.mu.Lock()
		send := s.send
		s.mu.Unlock()
		if send != nil {
			send(runMsg{f: f})
		}
	})
}

var (
	promptStyle    = lipgloss.NewStyle().Bold(true)
	tickerStyle    = lipgloss.NewStyle().Bold(true)
	nameStyle      = lipgloss.NewStyle().Faint(true)
	highlightStyle = lipgloss.NewStyle().Reverse(true)
	statusStyle    = lipgloss.NewStyle().Faint(true).Italic(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Model is the bubbletea model of the search box.
type Model struct {
	ctx      context.Context
	input    textinput.Model
	ctrl     *autocomplete.Controller
	loader   Loader
	width    int
	selected string
	quitting bool
}

// New creates the search box. ctrl must have been built with a scheduler
// that delivers callbacks through the program, see LoopScheduler.
func New(ctx context.Context, ctrl *autocomplete.Controller, loader Loader) *Model {
	ti := textinput.New()
	ti.Placeholder = "e.g., AAPL, TSLA"
	ti.Prompt = promptStyle.Render("ticker ❯ ")
	ti.CharLimit = 32
	ti.SetWidth(40)
	ti.Focus()

	return &Model{
		ctx:    ctx,
		input:  ti,
		ctrl:   ctrl,
		loader: loader,
		width:  80,
	}
}

// Selected returns the committed ticker, if any.
func (m *Model) Selected() string {
	return m.selected
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.load())
}

func (m *Model) load() tea.Cmd {
	if m.loader == nil {
		return nil
	}
	ctx := m.ctx
	loader := m.loader
	return func() tea.Msg {
		return loadedMsg{err: loader.EnsureLoaded(ctx)}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runMsg:
		msg.f()
		return m, nil

	case loadedMsg:
		// The store keeps the outcome; the view reads it from there. A list
		// shown while loading was searched against an empty trie.
		if msg.err == nil {
			m.refresh()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.FocusMsg:
		m.ctrl.Focus()
		return m, nil

	case tea.BlurMsg:
		m.ctrl.ClickOutside()
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quit()
			return m, tea.Quit
		case "down":
			m.ctrl.Key(autocomplete.KeyDown)
			return m, nil
		case "up":
			m.ctrl.Key(autocomplete.KeyUp)
			return m, nil
		case "enter":
			if m.ctrl.Key(autocomplete.KeyEnter) {
				m.syncInput()
				m.selected = m.ctrl.State().Text
				m.quit()
				return m, tea.Quit
			}
			return m, nil
		case "esc":
			if !m.ctrl.Key(autocomplete.KeyEscape) {
				m.quit()
				return m, tea.Quit
			}
			return m, nil
		case "ctrl+r":
			if m.loader != nil && m.loader.Snapshot().State == store.Failed {
				return m, m.load()
			}
			return m, nil
		case "ctrl+x":
			if m.loader != nil {
				m.loader.ClearError()
			}
			return m, nil
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.ctrl.Input(after)
	}
	return m, cmd
}

// refresh searches the open list's text again.
func (m *Model) refresh() {
	st := m.ctrl.State()
	if st.Open && st.Phase != autocomplete.Typing && strings.TrimSpace(st.Text) != "" {
		m.ctrl.Input(st.Text)
	}
}

func (m *Model) quit() {
	m.quitting = true
	m.ctrl.Close()
}

// syncInput copies the controller text into the text box after a commit.
func (m *Model) syncInput() {
	if text := m.ctrl.State().Text; text != m.input.Value() {
		m.input.SetValue(text)
		m.input.CursorEnd()
	}
}

func (m *Model) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}
	return tea.NewView(m.render())
}

func (m *Model) render() string {
	var b strings.Builder
	b.WriteString(m.input.View())
	b.WriteString("\n")

	var snap store.Snapshot
	if m.loader != nil {
		snap = m.loader.Snapshot()
	}
	st := m.ctrl.State()

	switch {
	case snap.State == store.Loading:
		b.WriteString(statusStyle.Render("Loading securities..."))
		b.WriteString("\n")
	case snap.State == store.Failed && snap.Err != nil:
		b.WriteString(errorStyle.Render("Failed to load securities: " + snap.Err.Error()))
		b.WriteString("\n")
		b.WriteString(statusStyle.Render("ctrl+r retry · ctrl+x dismiss"))
		b.WriteString("\n")
	}

	if !st.Open {
		return b.String()
	}

	switch {
	case st.Phase == autocomplete.Typing && len(st.Results) == 0:
		b.WriteString(statusStyle.Render("Searching..."))
		b.WriteString("\n")
		return b.String()
	case st.Phase == autocomplete.NoResults:
		b.WriteString(statusStyle.Render("No securities found"))
		b.WriteString("\n")
		return b.String()
	}

	nameWidth := m.width - 12
	if nameWidth < 10 {
		nameWidth = 10
	}
	for i, security := range st.Results {
		row := tickerStyle.Render(runewidth.FillRight(security.CanonicalTicker(), 8)) + " " +
			nameStyle.Render(runewidth.Truncate(security.Name, nameWidth, "…"))
		if i == st.Highlighted {
			row = highlightStyle.Render(row)
		}
		b.WriteString("  ")
		b.WriteString(row)
		b.WriteString("\n")
	}
	return b.String()
}
