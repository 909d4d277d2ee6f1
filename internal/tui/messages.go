package tui

import (
	"github.com/Veraticus/scribe/internal/engine"
	"github.com/Veraticus/scribe/internal/model"
)

// outcomeMsg carries the result of a send or a conflict resolution.
type outcomeMsg struct {
	err     error
	outcome engine.Outcome
}

// sessionMsg reports a freshly started chat session.
type sessionMsg struct {
	session model.ChatSession
}
