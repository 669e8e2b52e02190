// Package ui renders critiqal data for the terminal. Colors follow the
// persisted theme: light or dark base palette plus the user's accent color.
package ui

import (
	"strings"

	"critiqal/internal/state"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light mode
	LightForeground = lipgloss.Color("#111827") // gray-900
	LightMuted      = lipgloss.Color("#6B7280") // gray-500
	LightBorder     = lipgloss.Color("#E5E7EB") // gray-200
	LightCard       = lipgloss.Color("#FFFFFF")

	// Dark mode
	DarkForeground = lipgloss.Color("#F3F4F6") // gray-100
	DarkMuted      = lipgloss.Color("#9CA3AF") // gray-400
	DarkBorder     = lipgloss.Color("#374151") // gray-700
	DarkCard       = lipgloss.Color("#1F2937") // gray-800

	// Semantic colors, same in both modes
	Destructive = lipgloss.Color("#EF4444")
	Success     = lipgloss.Color("#22C55E")
	Warning     = lipgloss.Color("#F59E0B")
	Info        = lipgloss.Color("#3B82F6")
)

// Theme is a resolved color scheme.
type Theme struct {
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	Accent     lipgloss.Color
	IsDark     bool
}

// ThemeFrom resolves a persisted theme into colors.
func ThemeFrom(t state.Theme) Theme {
	accent := t.AccentColor
	if accent == "" {
		accent = state.DefaultAccentColor
	}
	if t.Mode == state.ThemeDark {
		return Theme{
			Foreground: DarkForeground,
			Muted:      DarkMuted,
			Border:     DarkBorder,
			Card:       DarkCard,
			Accent:     lipgloss.Color(accent),
			IsDark:     true,
		}
	}
	return Theme{
		Foreground: LightForeground,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
		Accent:     lipgloss.Color(accent),
	}
}

// Styles holds the styled components.
type Styles struct {
	Theme Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style
	Author   lipgloss.Style
	Hint     lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	Card    lipgloss.Style
	Divider lipgloss.Style
	Badge   lipgloss.Style
}

// NewStyles creates Styles for the given theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Title: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Author: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Hint: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Card: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Badge: lipgloss.NewStyle().
			Background(theme.Accent).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1).
			Bold(true),
	}
}

// DefaultStyles returns styles for the default theme.
func DefaultStyles() Styles {
	return NewStyles(ThemeFrom(state.DefaultTheme()))
}

// RenderDivider returns a horizontal divider.
func (s Styles) RenderDivider(width int) string {
	if width < 1 {
		width = 1
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
