// Package export flattens triage progress into tabular rows and writes them as CSV or
// XLSX.
package export

import (
	"fmt"
	"strings"

	"github.com/jask/papertriage/internal/triage"
)

// DefaultIndex is written for records whose source row had no id.
const DefaultIndex int64 = 0

// Kind selects the row order of an export.
type Kind string

const (
	// History lists decisions in the order they were made.
	History Kind = "history"
	// Lists lists every kept record, then every dropped record.
	Lists Kind = "lists"
)

// ParseKind accepts "history" or "lists".
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case History:
		return History, nil
	case Lists:
		return Lists, nil
	}
	return "", fmt.Errorf("export: unknown kind %q", s)
}

// Format is the output file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case CSV:
		return CSV, nil
	case XLSX:
		return XLSX, nil
	}
	return "", fmt.Errorf("export: unknown format %q", s)
}

// Row is one exported record. Label is 1 for keep and 0 for drop.
type Row struct {
	Index int64
	Title string
	Label int
}

func label(d triage.Decision) int {
	if d == triage.Keep {
		return 1
	}
	return 0
}

// ByHistory returns one row per history entry in commit order.
func ByHistory(history []triage.HistoryEntry) []Row {
	out := make([]Row, 0, len(history))
	for _, h := range history {
		out = append(out, Row{Index: h.Record.IDOr(DefaultIndex), Title: title(h.Record), Label: label(h.Decision)})
	}
	return out
}

// ByLists returns the keep list followed by the drop list, each in list order.
func ByLists(keep, drop []*triage.Record) []Row {
	out := make([]Row, 0, len(keep)+len(drop))
	for _, r := range keep {
		out = append(out, Row{Index: r.IDOr(DefaultIndex), Title: title(r), Label: 1})
	}
	for _, r := range drop {
		out = append(out, Row{Index: r.IDOr(DefaultIndex), Title: title(r), Label: 0})
	}
	return out
}

// Rows builds the rows of kind from s.
func Rows(kind Kind, s triage.State) []Row {
	if kind == Lists {
		return ByLists(s.Keep, s.Drop)
	}
	return ByHistory(s.History)
}

func title(r *triage.Record) string {
	if r == nil {
		return ""
	}
	return r.Title
}
