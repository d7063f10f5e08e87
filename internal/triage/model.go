package triage

import (
	"fmt"
	"strings"
)

// Record is one literature entry. Records are shared by pointer; two records with the
// same title are still distinct entries.
type Record struct {
	ID       *int64
	Title    string
	Abstract string
	Journal  string
}

// IDOr returns the record id or def when the source row had none.
func (r *Record) IDOr(def int64) int64 {
	if r == nil || r.ID == nil {
		return def
	}
	return *r.ID
}

// Decision is the binary outcome assigned to a record.
type Decision int

const (
	Keep Decision = iota + 1
	Drop
)

func (d Decision) String() string {
	switch d {
	case Keep:
		return "keep"
	case Drop:
		return "drop"
	default:
		return "unknown"
	}
}

// Valid reports whether d is Keep or Drop.
func (d Decision) Valid() bool { return d == Keep || d == Drop }

// ParseDecision accepts "keep"/"drop" in any case.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keep":
		return Keep, nil
	case "drop":
		return Drop, nil
	}
	return 0, fmt.Errorf("unknown decision %q", s)
}

// HistoryEntry is one commit in chronological order.
type HistoryEntry struct {
	Decision Decision
	Record   *Record
}

// State is the mutable progress of one collection.
type State struct {
	CollectionID string
	Position     int
	Keep         []*Record
	Drop         []*Record
	History      []HistoryEntry
}

// NewState returns an empty state for id.
func NewState(id string) *State {
	return &State{CollectionID: id}
}

// Clone copies the slices; records are shared.
func (s *State) Clone() State {
	if s == nil {
		return State{}
	}
	return State{
		CollectionID: s.CollectionID,
		Position:     s.Position,
		Keep:         append([]*Record(nil), s.Keep...),
		Drop:         append([]*Record(nil), s.Drop...),
		History:      append([]HistoryEntry(nil), s.History...),
	}
}

// Rebuild derives the keep and drop lists from history, preserving relative order.
func Rebuild(history []HistoryEntry) (keep, drop []*Record) {
	for _, h := range history {
		switch h.Decision {
		case Keep:
			keep = append(keep, h.Record)
		case Drop:
			drop = append(drop, h.Record)
		}
	}
	return keep, drop
}

// Check verifies the state invariants against a collection of total records.
func (s *State) Check(total int) error {
	if s.Position != len(s.History) {
		return fmt.Errorf("position %d does not match history length %d", s.Position, len(s.History))
	}
	if s.Position < 0 || s.Position > total {
		return fmt.Errorf("position %d outside [0, %d]", s.Position, total)
	}
	keep, drop := Rebuild(s.History)
	if !samePointers(keep, s.Keep) {
		return fmt.Errorf("keep list does not match history")
	}
	if !samePointers(drop, s.Drop) {
		return fmt.Errorf("drop list does not match history")
	}
	seen := make(map[*Record]struct{}, len(s.Keep))
	for _, r := range s.Keep {
		seen[r] = struct{}{}
	}
	for _, r := range s.Drop {
		if _, ok := seen[r]; ok {
			return fmt.Errorf("record %q is in both keep and drop", r.Title)
		}
	}
	return nil
}

func samePointers(a, b []*Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
