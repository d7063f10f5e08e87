package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/papertriage/internal/gesture"
	"github.com/jask/papertriage/internal/triage"
)

// maxShift caps how far, in columns, a dragged card slides.
const maxShift = 8

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

func (a *App) View() string {
	var body string
	switch a.state {
	case viewLoading:
		body = a.renderLoading()
	case viewCard:
		if a.session.Engine.Complete() {
			body = a.renderComplete()
		} else {
			body = a.renderCard()
		}
	default:
		body = a.picker.View()
	}
	switch a.modal {
	case modalResults:
		body = a.overlay(body, a.renderResults())
	case modalConfirmReset:
		body = a.overlay(body, modalStyle.Render(fmt.Sprintf("Reset progress for %s?\n\n[y] confirm  [any] cancel", a.resetID)))
	}
	return a.zones.Scan(body + "\n" + a.renderFooter())
}

func (a *App) renderFooter() string {
	var lines []string
	if a.status != "" {
		if a.statusErr {
			lines = append(lines, errorStyle.Render(a.status))
		} else {
			lines = append(lines, statusStyle.Render(a.status))
		}
	}
	keys := a.keys.pickerHelp()
	if a.state == viewCard {
		keys = a.keys.cardHelp()
	}
	lines = append(lines, a.help.View(keys))
	return strings.Join(lines, "\n")
}

func (a *App) renderLoading() string {
	return fmt.Sprintf("%s\n\nLoading %s…\n%s", titleStyle.Render("papertriage"), a.loadingID, dimStyle.Render("esc to cancel"))
}

func (a *App) renderCard() string {
	eng := a.session.Engine
	rec := eng.Current()
	keep, drop, pos := eng.Counts()
	header := headerStyle.Render(a.session.ID) +
		dimStyle.Render(fmt.Sprintf("   %d / %d   keep %d · drop %d", pos+1, eng.Total(), keep, drop))

	w := a.cardWidth()
	inner := w - 6
	x := a.gesture.Offset()

	keepO, dropO := gesture.Indicator(x)
	dropLabel, keepLabel := "    ", "    "
	if dropO > 0 {
		dropLabel = fade(dropStyle, dropO).Render("DROP")
	}
	if keepO > 0 {
		keepLabel = fade(keepStyle, keepO).Render("KEEP")
	}
	gap := max(inner-lipgloss.Width(dropLabel)-lipgloss.Width(keepLabel), 1)
	overlay := dropLabel + strings.Repeat(" ", gap) + keepLabel

	parts := []string{
		overlay,
		lipgloss.NewStyle().Bold(true).Width(inner).Render(highlightAddress(rec.Title)),
	}
	if rec.Journal != "" {
		parts = append(parts, journalStyle.Render(rec.Journal))
	}
	parts = append(parts, "", a.abstract.View())

	card := cardStyle.
		Width(w).
		BorderForeground(tintColor(a.gesture.Tint(x))).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	shift := min(max(int(x/a.opts.CellUnits), -maxShift), maxShift)
	card = lipgloss.NewStyle().MarginLeft(maxShift + shift).Render(card)

	next := ""
	if n := eng.Next(); n != nil {
		next = lipgloss.NewStyle().MarginLeft(maxShift).Render(dimStyle.Render("next: " + truncate(n.Title, inner-6)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, "", card, next, a.renderExit(), a.renderButtons(true))
}

func (a *App) renderExit() string {
	if a.exit == nil {
		return ""
	}
	if a.exit.intent == gesture.Keep {
		return keepStyle.Render("kept: "+a.exit.title) + keepStyle.Render(" →")
	}
	return dropStyle.Render("← ") + dropStyle.Render("dropped: "+a.exit.title)
}

func (a *App) renderButtons(decide bool) string {
	undo := a.zones.Mark(buttonUndo, buttonStyle.Render("↓ Undo"))
	if !decide {
		return lipgloss.NewStyle().MarginLeft(maxShift).Render(undo)
	}
	drop := a.zones.Mark(buttonDrop, buttonStyle.BorderForeground(lipgloss.Color(colorDrop)).Render("← Drop"))
	keep := a.zones.Mark(buttonKeep, buttonStyle.BorderForeground(lipgloss.Color(colorKeep)).Render("Keep →"))
	return lipgloss.NewStyle().MarginLeft(maxShift).Render(lipgloss.JoinHorizontal(lipgloss.Top, drop, " ", undo, " ", keep))
}

func (a *App) renderComplete() string {
	eng := a.session.Engine
	keep, drop, _ := eng.Counts()
	body := fmt.Sprintf("All %d records classified.\n\n%s   %s\n\n%s",
		eng.Total(),
		keepStyle.Render(fmt.Sprintf("keep %d", keep)),
		dropStyle.Render(fmt.Sprintf("drop %d", drop)),
		dimStyle.Render("r results · e export csv · E export result · ↓ undo · esc collections"))
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(a.session.ID), "",
		modalStyle.Render(body),
		a.renderExit(),
		a.renderButtons(false))
}

func (a *App) renderResults() string {
	st := a.results
	limit := 10
	if a.height > 0 {
		limit = max(a.height-22, 3)
	}
	column := func(label string, style lipgloss.Style, recs []*triage.Record) string {
		lines := []string{style.Render(fmt.Sprintf("%s (%d)", label, len(recs)))}
		for i, r := range recs {
			if i == limit {
				lines = append(lines, dimStyle.Render(fmt.Sprintf("… +%d more", len(recs)-limit)))
				break
			}
			lines = append(lines, "• "+truncate(r.Title, 36))
		}
		return lipgloss.NewStyle().Width(40).Render(strings.Join(lines, "\n"))
	}
	cols := lipgloss.JoinHorizontal(lipgloss.Top,
		column("Keep", keepStyle, st.Keep), "  ", column("Drop", dropStyle, st.Drop))
	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Results · "+a.resultsID), "",
		cols, "",
		dimStyle.Render("keep ratio over time"),
		keepRatioChart(st.History), "",
		dimStyle.Render("esc/r close"))
	return modalStyle.Render(body)
}

// keepRatio is the running share of keep decisions after each commit.
func keepRatio(history []triage.HistoryEntry) []float64 {
	out := make([]float64, 0, len(history))
	kept := 0
	for i, h := range history {
		if h.Decision == triage.Keep {
			kept++
		}
		out = append(out, float64(kept)/float64(i+1))
	}
	return out
}

func keepRatioChart(history []triage.HistoryEntry) string {
	series := keepRatio(history)
	if len(series) == 0 {
		return dimStyle.Render("no decisions yet")
	}
	spark := sparkline.New(min(len(series), 60), 3)
	for _, v := range series {
		spark.Push(v * 100)
	}
	spark.Draw()
	return spark.View()
}
