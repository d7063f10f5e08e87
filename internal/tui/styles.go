package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	colorNeutral = "#5f5f87"
	colorKeep    = "#22c55e"
	colorDrop    = "#ef4444"
	colorMark    = "#facc15"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e5e7eb"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	journalStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#93c5fd"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#a3a3a3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorDrop))
	markStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#111827")).Background(lipgloss.Color(colorMark))
	keepStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorKeep))
	dropStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorDrop))
	buttonStyle  = lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.RoundedBorder())
	modalStyle   = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).Padding(1, 2)
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}
	}
	return c
}

// tintColor blends the neutral border colour toward keep green or drop red by the
// magnitude of t in [-1, 1].
func tintColor(t float64) lipgloss.Color {
	base := mustHex(colorNeutral)
	switch {
	case t > 0:
		return lipgloss.Color(base.BlendLab(mustHex(colorKeep), t).Clamped().Hex())
	case t < 0:
		return lipgloss.Color(base.BlendLab(mustHex(colorDrop), -t).Clamped().Hex())
	}
	return lipgloss.Color(colorNeutral)
}

// fade picks a style for an overlay label with opacity o in [0, 1].
func fade(style lipgloss.Style, o float64) lipgloss.Style {
	switch {
	case o >= 1:
		return style.Reverse(true)
	case o >= 0.5:
		return style
	default:
		return style.Faint(true)
	}
}

const addressWord = "주소"

// highlightAddress marks every occurrence of the address keyword.
func highlightAddress(s string) string {
	if !strings.Contains(s, addressWord) {
		return s
	}
	parts := strings.Split(s, addressWord)
	return strings.Join(parts, markStyle.Render(addressWord))
}
