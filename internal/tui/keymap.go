package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	Send       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding

	// Conflict resolution
	Replace key.Binding
	Cancel  key.Binding
	Ignore  key.Binding

	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Replace: key.NewBinding(
			key.WithKeys("r", "R"),
			key.WithHelp("r", "replace"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c", "C"),
			key.WithHelp("c", "cancel"),
		),
		Ignore: key.NewBinding(
			key.WithKeys("i", "I"),
			key.WithHelp("i", "ignore and add"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
	}
}
