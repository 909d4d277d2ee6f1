package tui

import (
	"context"

	"github.com/Veraticus/scribe/internal/cli"
	"github.com/Veraticus/scribe/internal/merge"
	"github.com/Veraticus/scribe/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

// Assistant is what the chat screen drives.
type Assistant interface {
	cli.Assistant
	NewSession(ctx context.Context) model.ChatSession
}

func sendCmd(ctx context.Context, assistant Assistant, input model.Input) tea.Cmd {
	return func() tea.Msg {
		outcome, err := assistant.Send(ctx, input)
		return outcomeMsg{outcome: outcome, err: err}
	}
}

func resolveCmd(ctx context.Context, assistant Assistant, res merge.Resolution) tea.Cmd {
	return func() tea.Msg {
		outcome, err := assistant.Resolve(ctx, res)
		return outcomeMsg{outcome: outcome, err: err}
	}
}

func newSessionCmd(ctx context.Context, assistant Assistant) tea.Cmd {
	return func() tea.Msg {
		return sessionMsg{session: assistant.NewSession(ctx)}
	}
}
