package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/scribe/internal/cli"
	"github.com/Veraticus/scribe/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// View renders the chat screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.theme.Subtle.Render(strings.Repeat("─", max(m.width, 1))),
		m.renderPrompt(),
		m.renderStatus(),
	)
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 && m.conflict == nil {
		return m.theme.Subtle.Render("Nothing here yet. Type a message and press enter. /new starts a fresh chat, /image <file> attaches a picture.")
	}

	blocks := make([]string, 0, len(m.transcript)+1)
	for _, msg := range m.transcript {
		blocks = append(blocks, m.renderMessage(msg))
	}
	if m.state == StateConflict && m.conflict != nil {
		blocks = append(blocks, cli.RenderConflict(*m.conflict))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg model.ChatMessage) string {
	var label string
	switch {
	case msg.Role == model.RoleUser:
		label = m.theme.User.Render("you")
	case msg.IsError:
		label = m.theme.Error.Render("scribe")
	default:
		label = m.theme.Assistant.Render("scribe")
	}

	text := msg.Text
	if msg.Image != "" {
		text = strings.TrimSpace(m.theme.Subtle.Render("[image]") + " " + text)
	}
	if msg.IsError {
		text = m.theme.Error.Render(text)
	}

	var b strings.Builder
	b.WriteString(label + "  " + lipgloss.NewStyle().Width(max(m.width-8, 20)).Render(text))
	for i, opt := range msg.ClarificationOptions {
		fmt.Fprintf(&b, "\n  %s %s", m.theme.Option.Render(fmt.Sprintf("%d)", i+1)), opt)
	}
	return b.String()
}

func (m Model) renderPrompt() string {
	switch m.state {
	case StateWaiting:
		return m.spinner.View() + " " + m.theme.Subtle.Render("thinking...")
	case StateConflict:
		return m.theme.Warning.Render("Possible duplicates: [r]eplace  [c]ancel  [i]gnore and add")
	default:
		return m.input.View()
	}
}

func (m Model) renderStatus() string {
	switch {
	case m.status != "" && m.statusErr:
		return m.theme.Error.Render(m.status)
	case m.status != "":
		return m.theme.Success.Render(m.status)
	case m.state == StateClarifying:
		return m.theme.StatusBar.Render("press 1-" + fmt.Sprint(len(m.options)) + " to pick an option, or type a reply")
	default:
		return m.theme.StatusBar.Render("enter send · PgUp/PgDn scroll · esc quit")
	}
}
