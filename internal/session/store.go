// Package session persists and restores triage progress, one snapshot per collection.
package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jask/papertriage/internal/triage"
)

// Backend stores opaque snapshot blobs keyed by collection id.
type Backend interface {
	Get(ctx context.Context, id string) ([]byte, bool, error)
	Put(ctx context.Context, id string, body []byte) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) (map[string][]byte, error)
}

// Summary is the progress shown next to a collection in the picker.
type Summary struct {
	Exists   bool
	Position int
	Keep     int
	Drop     int
}

// Classified is the number of records with a decision.
func (s Summary) Classified() int { return s.Keep + s.Drop }

// Store restores and saves session state.
type Store struct {
	backend Backend
	log     *zap.Logger
}

// NewStore returns a store over backend. A nil logger discards logs.
func NewStore(backend Backend, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{backend: backend, log: log.Named("session")}
}

// Load restores the session for id against the freshly loaded records. It never
// fails: a missing, unreadable or malformed snapshot yields an empty session.
//
// History is authoritative. The position is taken from the history length and clamped
// to len(records); history beyond the clamp is dropped and the keep/drop lists are
// rebuilt from what remains. Restored records are bound to the loaded instances when
// the row at the same position carries the same fields.
func (s *Store) Load(ctx context.Context, id string, records []*triage.Record) *triage.State {
	state := triage.NewState(id)
	snap, ok := s.read(ctx, id)
	if !ok {
		return state
	}

	history := snap.History
	if snap.Position != len(history) {
		s.log.Warn("snapshot position disagrees with history",
			zap.String("collection", id), zap.Int("position", snap.Position), zap.Int("history", len(history)))
	}
	if len(history) > len(records) {
		s.log.Warn("snapshot longer than collection, truncating",
			zap.String("collection", id), zap.Int("history", len(history)), zap.Int("records", len(records)))
		history = history[:len(records)]
	}

	for i, h := range history {
		d, _ := triage.ParseDecision(h.Decision)
		rec := records[i]
		if !h.Record.matches(rec) {
			rec = h.Record.record()
		}
		state.History = append(state.History, triage.HistoryEntry{Decision: d, Record: rec})
	}
	state.Keep, state.Drop = triage.Rebuild(state.History)
	state.Position = len(state.History)

	if len(snap.KeepList) != len(state.Keep) || len(snap.DropList) != len(state.Drop) {
		s.log.Warn("snapshot lists disagree with history, rebuilt",
			zap.String("collection", id), zap.Int("keep", len(snap.KeepList)), zap.Int("drop", len(snap.DropList)))
	}
	if err := state.Check(len(records)); err != nil {
		s.log.Error("restored session is inconsistent, starting fresh", zap.String("collection", id), zap.Error(err))
		return triage.NewState(id)
	}
	s.log.Debug("session restored", zap.String("collection", id), zap.Int("position", state.Position))
	return state
}

// Peek restores the persisted state of id without a record sequence, for exports of
// collections that are not open.
func (s *Store) Peek(ctx context.Context, id string) (triage.State, bool) {
	snap, ok := s.read(ctx, id)
	if !ok {
		return triage.State{CollectionID: id}, false
	}
	state := triage.State{CollectionID: id}
	for _, h := range snap.History {
		d, _ := triage.ParseDecision(h.Decision)
		state.History = append(state.History, triage.HistoryEntry{Decision: d, Record: h.Record.record()})
	}
	state.Keep, state.Drop = triage.Rebuild(state.History)
	state.Position = len(state.History)
	return state, true
}

func (s *Store) read(ctx context.Context, id string) (Snapshot, bool) {
	body, ok, err := s.backend.Get(ctx, id)
	if err != nil {
		s.log.Warn("snapshot read failed", zap.String("collection", id), zap.Error(err))
		return Snapshot{}, false
	}
	if !ok {
		return Snapshot{}, false
	}
	snap, err := Decode(body)
	if err != nil {
		s.log.Warn("snapshot malformed, starting fresh", zap.String("collection", id), zap.Error(err))
		return Snapshot{}, false
	}
	return snap, true
}

// Save writes the full state under its collection id. Last write wins.
func (s *Store) Save(ctx context.Context, state triage.State) error {
	if state.CollectionID == "" {
		return fmt.Errorf("session: save without collection id")
	}
	body, err := Encode(state)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", state.CollectionID, err)
	}
	if err := s.backend.Put(ctx, state.CollectionID, body); err != nil {
		return fmt.Errorf("session: save %s: %w", state.CollectionID, err)
	}
	return nil
}

// Summary reports stored progress for id.
func (s *Store) Summary(ctx context.Context, id string) Summary {
	snap, ok := s.read(ctx, id)
	if !ok {
		return Summary{}
	}
	sum := Summary{Exists: true, Position: len(snap.History)}
	for _, h := range snap.History {
		if h.Decision == triage.Keep.String() {
			sum.Keep++
		} else {
			sum.Drop++
		}
	}
	return sum
}

// Reset discards stored progress for id.
func (s *Store) Reset(ctx context.Context, id string) error {
	if err := s.backend.Delete(ctx, id); err != nil {
		return fmt.Errorf("session: reset %s: %w", id, err)
	}
	return nil
}

// ResetAll discards every stored session.
func (s *Store) ResetAll(ctx context.Context) error {
	all, err := s.backend.List(ctx)
	if err != nil {
		return fmt.Errorf("session: list: %w", err)
	}
	for id := range all {
		if err := s.Reset(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
