package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// overlay centres box over base. Without a known window size the box is appended
// below base instead.
func (a *App) overlay(base, box string) string {
	if a.width <= 0 || a.height <= 0 {
		return base + "\n\n" + box
	}
	lines := splitLines(box)
	x := max((a.width-maxLineWidth(lines))/2, 0)
	y := max((a.height-len(lines))/2-1, 0)
	return overlayAt(fitLines(base, a.height-2), box, x, y, a.width, a.height)
}

// overlayAt composites overlay on top of base at column x, row y. Both are treated
// as line grids.
func overlayAt(base, overlay string, x, y, width, height int) string {
	baseLines := splitLines(base)
	overlayLines := splitLines(overlay)
	overlayWidth := maxLineWidth(overlayLines)
	for i, line := range overlayLines {
		row := y + i
		if row < 0 || row >= len(baseLines) || row >= height {
			continue
		}
		target := padRight(baseLines[row], width)
		left := ansi.Truncate(target, x, "")
		if w := ansi.StringWidth(left); w < x {
			left += strings.Repeat(" ", x-w)
		}
		overlayLine := padRight(line, overlayWidth)
		right := ansi.TruncateLeft(target, x+ansi.StringWidth(overlayLine), "")
		baseLines[row] = left + overlayLine + right
	}
	return strings.Join(baseLines, "\n")
}

// fitLines pads or cuts s to exactly n lines.
func fitLines(s string, n int) string {
	lines := splitLines(s)
	if n <= 0 {
		return s
	}
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func splitLines(s string) []string {
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}

func maxLineWidth(lines []string) int {
	m := 0
	for _, line := range lines {
		if w := ansi.StringWidth(line); w > m {
			m = w
		}
	}
	return m
}

// padRight pads s with spaces to a visual width of width.
func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// truncate shortens s to n cells, marking the cut with an ellipsis. Hangul counts
// two cells per syllable.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return ansi.Truncate(s, n, "…")
}
