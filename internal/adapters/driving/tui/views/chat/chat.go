// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/lectern/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/lectern/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/lectern/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/lectern/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/lectern/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driving"
)

// ErrNoAskService indicates that no ask service was provided.
var ErrNoAskService = errors.New("ask service is required")

// Turn is one question and its outcome in the transcript.
type Turn struct {
	Question string
	Answer   string
	Sources  []domain.Source
	Err      error
}

// View is the conversation view: transcript, question box and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	statusbar *status.Bar
	viewport  viewport.Model
	spinner   spinner.Model

	askService driving.AskService
	ctx        context.Context

	turns     []Turn
	sessionID string
	pending   string
	thinking  bool

	width  int
	height int
	ready  bool
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, askService driving.AskService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.Muted

	v := &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		statusbar:  status.NewBar(s, km),
		viewport:   viewport.New(80, 16),
		spinner:    sp,
		askService: askService,
		ctx:        context.Background(),
		width:      80,
		height:     24,
	}
	v.refresh()
	return v
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.QuestionSubmitted:
		return v, v.submit(msg.Question)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.SessionCleared:
		if msg.Err != nil {
			v.statusbar.SetState(status.StateError)
			v.statusbar.SetMessage(msg.Err.Error())
		}
		return v, nil

	case messages.ErrorOccurred:
		v.thinking = false
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil

	case spinner.TickMsg:
		if !v.thinking {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		v.refresh()
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()

	switch {
	case keymap.Matches(key, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case keymap.Matches(key, v.keymap.NewSession):
		return v, v.newSession()

	case keymap.Matches(key, v.keymap.ScrollUp):
		v.viewport.SetYOffset(v.viewport.YOffset - v.viewport.Height/2)
		return v, nil

	case keymap.Matches(key, v.keymap.ScrollDown):
		v.viewport.SetYOffset(v.viewport.YOffset + v.viewport.Height/2)
		return v, nil

	case keymap.Matches(key, v.keymap.Send):
		question := v.input.Question()
		if question == "" {
			return v, nil
		}
		cmd := v.submit(question)
		if cmd != nil {
			v.input.Reset()
		}
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit starts answering a question unless one is already in flight.
func (v *View) submit(question string) tea.Cmd {
	if v.thinking {
		return nil
	}
	v.pending = question
	v.thinking = true
	v.statusbar.SetState(status.StateThinking)
	v.refresh()
	return tea.Batch(v.spinner.Tick, v.ask(question))
}

// ask sends a question on the current session.
func (v *View) ask(question string) tea.Cmd {
	sessionID := v.sessionID
	return func() tea.Msg {
		if v.askService == nil {
			return messages.ErrorOccurred{Err: ErrNoAskService}
		}
		answer, err := v.askService.Ask(v.ctx, sessionID, question)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

// newSession forgets the transcript locally and drops the server-side history.
func (v *View) newSession() tea.Cmd {
	previous := v.sessionID
	v.sessionID = ""
	v.turns = nil
	v.pending = ""
	v.thinking = false
	v.statusbar.Clear()
	v.refresh()

	if previous == "" || v.askService == nil {
		return nil
	}
	return func() tea.Msg {
		return messages.SessionCleared{Err: v.askService.ClearSession(v.ctx, previous)}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.thinking = false
	v.pending = ""

	turn := Turn{Question: msg.Question, Err: msg.Err}
	if msg.Err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
	} else if msg.Answer != nil {
		turn.Answer = msg.Answer.Text
		turn.Sources = msg.Answer.Sources
		v.sessionID = msg.Answer.SessionID
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage("")
	}
	v.turns = append(v.turns, turn)
	v.statusbar.SetSession(v.sessionID, v.exchanges())
	v.refresh()
}

func (v *View) exchanges() int {
	n := 0
	for _, t := range v.turns {
		if t.Err == nil {
			n++
		}
	}
	return n
}

// refresh re-renders the transcript into the viewport and keeps it pinned to the end.
func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.turns) == 0 && v.pending == "" {
		return v.styles.Muted.Render("Ask a question about your courses, e.g. \"What does lesson 2 of the ML course cover?\"")
	}

	wrap := v.width - 4
	if wrap < 20 {
		wrap = 20
	}

	var b strings.Builder
	for i, t := range v.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(v.renderQuestion(t.Question, wrap))
		b.WriteString("\n")
		if t.Err != nil {
			b.WriteString(v.styles.Error.Width(wrap).Render("Error: " + t.Err.Error()))
			b.WriteString("\n")
			continue
		}
		b.WriteString(v.styles.Answer.Width(wrap).Render(t.Answer))
		b.WriteString("\n")
		for _, src := range t.Sources {
			b.WriteString(v.styles.Source.Render(formatSource(src)))
			b.WriteString("\n")
		}
	}

	if v.pending != "" {
		if len(v.turns) > 0 {
			b.WriteString("\n")
		}
		b.WriteString(v.renderQuestion(v.pending, wrap))
		b.WriteString("\n")
		b.WriteString(v.styles.Answer.Render(v.spinner.View() + " thinking"))
		b.WriteString("\n")
	}

	return b.String()
}

func (v *View) renderQuestion(q string, wrap int) string {
	return v.styles.Question.Width(wrap).Render("You: " + q)
}

// formatSource renders a citation, with its lesson link when one exists.
func formatSource(src domain.Source) string {
	if src.URL == "" {
		return "· " + src.Text
	}
	return fmt.Sprintf("· %s <%s>", src.Text, src.URL)
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{
		v.styles.Title.Render("Lectern") + v.styles.Muted.Render("  course assistant"),
		"",
		v.viewport.View(),
		"",
		v.input.View(),
		v.statusbar.View(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	// header, spacers, input box and status bar
	vh := height - 8
	if vh < 3 {
		vh = 3
	}
	v.viewport.Width = width
	v.viewport.Height = vh
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Turns returns the transcript.
func (v *View) Turns() []Turn {
	return v.turns
}

// SessionID returns the active session, empty before the first answer.
func (v *View) SessionID() string {
	return v.sessionID
}

// Thinking reports whether a question is awaiting its answer.
func (v *View) Thinking() bool {
	return v.thinking
}

// SetQuestion fills the question box.
func (v *View) SetQuestion(q string) {
	v.input.SetValue(q)
}

// Status returns the status bar state.
func (v *View) Status() status.State {
	return v.statusbar.State()
}
