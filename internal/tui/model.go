package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/Veraticus/scribe/internal/cli"
	"github.com/Veraticus/scribe/internal/common"
	"github.com/Veraticus/scribe/internal/engine"
	"github.com/Veraticus/scribe/internal/merge"
	"github.com/Veraticus/scribe/internal/model"
	"github.com/Veraticus/scribe/internal/tui/themes"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// State represents what the chat screen is waiting for.
type State int

const (
	// StateInput accepts a new message.
	StateInput State = iota
	// StateWaiting blocks input while the assistant works.
	StateWaiting
	// StateConflict waits for r, c or i.
	StateConflict
	// StateClarifying accepts an option number or a free-form reply.
	StateClarifying
)

// Rows taken by the input line, the status line and the separators.
const chromeHeight = 4

// Model holds the chat screen state.
type Model struct {
	ctx        context.Context
	assistant  Assistant
	theme      themes.Theme
	keymap     KeyMap
	viewport   viewport.Model
	input      textinput.Model
	spinner    spinner.Model
	transcript []model.ChatMessage
	options    []string
	conflict   *merge.ConflictSession
	status     string
	statusErr  bool
	width      int
	height     int
	state      State
	quitting   bool
}

func newModel(ctx context.Context, assistant Assistant, cfg Config) Model {
	input := textinput.New()
	input.Placeholder = "Tell me about a contact, an appointment, a purchase or your day"
	input.Prompt = "> "
	input.CharLimit = 4000
	input.Width = cfg.Width - len(input.Prompt) - 1
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(cfg.Theme.Spinner))

	m := Model{
		ctx:        ctx,
		assistant:  assistant,
		theme:      cfg.Theme,
		keymap:     DefaultKeyMap(),
		viewport:   viewport.New(cfg.Width, max(cfg.Height-chromeHeight, 1)),
		input:      input,
		spinner:    spin,
		transcript: append([]model.ChatMessage(nil), cfg.Transcript...),
		width:      cfg.Width,
		height:     cfg.Height,
		state:      StateInput,
	}
	if session, pending := assistant.PendingConflict(); pending {
		m.conflict = &session
		m.enter(StateConflict)
	}
	m.refresh()
	return m
}

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.input.Width = msg.Width - len(m.input.Prompt) - 1
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case outcomeMsg:
		m.handleOutcome(msg)
		return m, nil

	case sessionMsg:
		m.transcript = nil
		m.options = nil
		m.setStatus("Started a new chat.", false)
		m.enter(StateInput)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.state != StateWaiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.ScrollUp), key.Matches(msg, m.keymap.ScrollDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch m.state {
	case StateWaiting:
		return m, nil

	case StateConflict:
		var res merge.Resolution
		switch {
		case key.Matches(msg, m.keymap.Replace):
			res = merge.Replace
		case key.Matches(msg, m.keymap.Cancel):
			res = merge.Cancel
		case key.Matches(msg, m.keymap.Ignore):
			res = merge.IgnoreAndAppend
		default:
			return m, nil
		}
		m.enter(StateWaiting)
		return m, tea.Batch(m.spinner.Tick, resolveCmd(m.ctx, m.assistant, res))

	case StateClarifying:
		if m.input.Value() == "" && len(msg.Runes) == 1 {
			if n, err := strconv.Atoi(string(msg.Runes)); err == nil && n >= 1 && n <= len(m.options) {
				return m.submit(m.options[n-1])
			}
		}
	}

	if key.Matches(msg, m.keymap.Send) {
		return m.submit(m.input.Value())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit turns a line of input into a command for the assistant.
func (m Model) submit(line string) (tea.Model, tea.Cmd) {
	line = strings.TrimSpace(line)
	m.input.SetValue("")

	switch {
	case line == "":
		return m, nil
	case line == "/quit" || line == "/exit":
		m.quitting = true
		return m, tea.Quit
	case line == "/new":
		return m, newSessionCmd(m.ctx, m.assistant)
	}

	input := model.Input{Text: line}
	if rest, ok := strings.CutPrefix(line, "/image"); ok {
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			m.setStatus("usage: /image <file> [text]", true)
			return m, nil
		}
		image, err := cli.LoadImage(fields[0])
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		input = model.Input{Image: image, Text: strings.Join(fields[1:], " ")}
	}

	m.transcript = append(m.transcript, model.ChatMessage{Role: model.RoleUser, Text: input.Text, Image: input.Image})
	m.options = nil
	m.setStatus("", false)
	m.enter(StateWaiting)
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, sendCmd(m.ctx, m.assistant, input))
}

func (m *Model) handleOutcome(msg outcomeMsg) {
	out := msg.outcome
	if out.Reply != nil {
		m.transcript = append(m.transcript, *out.Reply)
	}

	switch {
	case msg.err != nil:
		if errors.Is(msg.err, common.ErrConflictPending) {
			if session, pending := m.assistant.PendingConflict(); pending {
				m.conflict = &session
			}
		}
		m.setStatus(common.UserMessage(msg.err), true)
	case out.History != nil:
		m.setStatus("Saved "+cli.SummarizeExtraction(out.History.Output), false)
	case out.Status == engine.StatusCancelled:
		m.setStatus("Nothing was saved.", false)
	}

	switch {
	case out.Conflict != nil:
		m.conflict = out.Conflict
		m.enter(StateConflict)
	case m.conflict != nil && msg.err != nil:
		m.enter(StateConflict)
	case out.Status == engine.StatusClarifying && out.Reply != nil && len(out.Reply.ClarificationOptions) > 0:
		m.options = out.Reply.ClarificationOptions
		m.enter(StateClarifying)
	default:
		m.conflict = nil
		m.enter(StateInput)
	}
	m.refresh()
}

// enter switches state and moves focus accordingly.
func (m *Model) enter(s State) {
	m.state = s
	if s == StateInput || s == StateClarifying {
		m.input.Focus()
		return
	}
	m.input.Blur()
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// State reports the current screen state.
func (m Model) State() State {
	return m.state
}
