package themes

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the visual style of the chat screen.
type Theme struct {
	Title       lipgloss.Style
	Subtle      lipgloss.Style
	User        lipgloss.Style
	Assistant   lipgloss.Style
	Error       lipgloss.Style
	Warning     lipgloss.Style
	Success     lipgloss.Style
	Option      lipgloss.Style
	Spinner     lipgloss.Style
	BorderedBox lipgloss.Style
	StatusBar   lipgloss.Style
	Primary     lipgloss.Color
	Muted       lipgloss.Color
	Border      lipgloss.Color
}

func newTheme(primary, secondary, success, warning, errColor, foreground, muted, border lipgloss.Color) Theme {
	return Theme{
		Primary: primary,
		Muted:   muted,
		Border:  border,

		Title:     lipgloss.NewStyle().Bold(true).Foreground(foreground),
		Subtle:    lipgloss.NewStyle().Foreground(muted),
		User:      lipgloss.NewStyle().Bold(true).Foreground(secondary),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(primary),
		Error:     lipgloss.NewStyle().Bold(true).Foreground(errColor),
		Warning:   lipgloss.NewStyle().Bold(true).Foreground(warning),
		Success:   lipgloss.NewStyle().Bold(true).Foreground(success),
		Option:    lipgloss.NewStyle().Foreground(primary),
		Spinner:   lipgloss.NewStyle().Foreground(primary),
		BorderedBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(warning).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().Foreground(muted).Italic(true),
	}
}

// Default is the default theme.
var Default = newTheme(
	lipgloss.Color("#7c3aed"),
	lipgloss.Color("#a78bfa"),
	lipgloss.Color("#10b981"),
	lipgloss.Color("#f59e0b"),
	lipgloss.Color("#ef4444"),
	lipgloss.Color("#fafafa"),
	lipgloss.Color("#737373"),
	lipgloss.Color("#404040"),
)

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = newTheme(
	lipgloss.Color("#cba6f7"),
	lipgloss.Color("#f5c2e7"),
	lipgloss.Color("#a6e3a1"),
	lipgloss.Color("#f9e2af"),
	lipgloss.Color("#f38ba8"),
	lipgloss.Color("#cdd6f4"),
	lipgloss.Color("#6c7086"),
	lipgloss.Color("#45475a"),
)

// ByName returns the named theme, or Default for unknown names.
func ByName(name string) Theme {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "catppuccin", "catppuccin-mocha", "mocha":
		return CatppuccinMocha
	default:
		return Default
	}
}
