package triage

import "sync"

// Status is the session lifecycle state.
type Status string

const (
	InProgress Status = "in_progress"
	Complete   Status = "complete"
)

// Engine applies and reverses decisions against a State. Commit and Undo are
// serialised; OnChange runs under the engine lock after every mutation and must not
// call back into the engine.
type Engine struct {
	mu       sync.Mutex
	records  []*Record
	state    *State
	onChange func(State)
}

// NewEngine wraps state for records. A nil state, or one that fails Check against
// records, starts fresh under the same collection id.
func NewEngine(records []*Record, state *State, onChange func(State)) *Engine {
	if state == nil {
		state = NewState("")
	} else if state.Check(len(records)) != nil {
		state = NewState(state.CollectionID)
	}
	return &Engine{records: records, state: state, onChange: onChange}
}

// Total is the number of records in the collection.
func (e *Engine) Total() int { return len(e.records) }

// Current returns the record at the position pointer, or nil when complete.
func (e *Engine) Current() *Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentLocked()
}

// Next returns the record after the current one, if any.
func (e *Engine) Next() *Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Position+1 < len(e.records) {
		return e.records[e.state.Position+1]
	}
	return nil
}

func (e *Engine) currentLocked() *Record {
	if e.state.Position >= 0 && e.state.Position < len(e.records) {
		return e.records[e.state.Position]
	}
	return nil
}

// Commit applies d to the current record. It is a no-op when there is no current
// record or d is not a decision.
func (e *Engine) Commit(d Decision) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.currentLocked()
	if rec == nil || !d.Valid() {
		return false
	}
	e.state.History = append(e.state.History, HistoryEntry{Decision: d, Record: rec})
	if d == Keep {
		e.state.Keep = append(e.state.Keep, rec)
	} else {
		e.state.Drop = append(e.state.Drop, rec)
	}
	e.state.Position++
	e.changed()
	return true
}

// Undo reverses the most recent commit. It is a no-op on empty history.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.state.History)
	if n == 0 {
		return false
	}
	last := e.state.History[n-1]
	e.state.History = e.state.History[:n-1]
	switch last.Decision {
	case Keep:
		if k := len(e.state.Keep); k > 0 {
			e.state.Keep = e.state.Keep[:k-1]
		}
	case Drop:
		if k := len(e.state.Drop); k > 0 {
			e.state.Drop = e.state.Drop[:k-1]
		}
	}
	if e.state.Position > 0 {
		e.state.Position--
	}
	e.changed()
	return true
}

func (e *Engine) changed() {
	if e.onChange != nil {
		e.onChange(e.state.Clone())
	}
}

// Status reports InProgress or Complete.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Position >= len(e.records) {
		return Complete
	}
	return InProgress
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Counts returns keep, drop and position.
func (e *Engine) Counts() (keep, drop, position int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.state.Keep), len(e.state.Drop), e.state.Position
}

// Complete reports whether every record has a decision.
func (e *Engine) Complete() bool { return e.Status() == Complete }
