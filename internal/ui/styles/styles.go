// Package styles contains Lip Gloss style definitions.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/regform/internal/password"
)

var (
	// Text hierarchy
	TextPrimaryColor     = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#CCCCCC"}
	TextMutedColor       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#696969"} // Hints, help text
	TextPlaceholderColor = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#777777"}

	// Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	// Password level colors
	LevelRedColor    = lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#FF8787"}
	LevelYellowColor = lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#FECA57"}
	LevelOrangeColor = lipgloss.AdaptiveColor{Light: "#FE640B", Dark: "#FF9F43"}
	LevelGreenColor  = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	// Form
	FormLabelColor        = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#8C8C8C"}
	FormFocusedLabelColor = lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"}
	FormBorderColor       = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#696969"}

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextPrimaryColor).
			MarginBottom(1)

	LabelStyle        = lipgloss.NewStyle().Foreground(FormLabelColor)
	FocusedLabelStyle = lipgloss.NewStyle().Foreground(FormFocusedLabelColor).Bold(true)

	// Validation message shown under a field
	ErrorMessageStyle = lipgloss.NewStyle().Foreground(StatusErrorColor)

	HelpStyle = lipgloss.NewStyle().Foreground(TextMutedColor)

	FormStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(FormBorderColor).
			Padding(1, 2)

	baseButtonStyle = lipgloss.NewStyle().Padding(0, 2).Bold(true)

	SubmitEnabledStyle = baseButtonStyle.
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.AdaptiveColor{Light: "#1A5276", Dark: "#3498DB"})

	SubmitDisabledStyle = baseButtonStyle.
				Foreground(TextMutedColor).
				Background(lipgloss.AdaptiveColor{Light: "#DDDDDD", Dark: "#2D2D2D"})
)

// LevelColor maps a password level color to a terminal color. The second
// result is false for password.ColorNone.
func LevelColor(c password.Color) (lipgloss.TerminalColor, bool) {
	switch c {
	case password.ColorRed:
		return LevelRedColor, true
	case password.ColorYellow:
		return LevelYellowColor, true
	case password.ColorOrange:
		return LevelOrangeColor, true
	case password.ColorGreen:
		return LevelGreenColor, true
	default:
		return lipgloss.NoColor{}, false
	}
}

// LevelStyle returns the style for a password level label.
func LevelStyle(c password.Color) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	if fg, ok := LevelColor(c); ok {
		return style.Foreground(fg)
	}
	return style.Foreground(TextMutedColor)
}
