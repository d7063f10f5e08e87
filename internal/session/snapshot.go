package session

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/jask/papertriage/internal/triage"
)

// Version is written into every snapshot. Version 1 is the unversioned layout that
// used "index" for the position and "paper" for history records.
const Version = 2

// Snapshot is the persisted form of a session.
type Snapshot struct {
	Version  int              `json:"version"`
	Position int              `json:"position"`
	KeepList []SnapshotRecord `json:"keepList"`
	DropList []SnapshotRecord `json:"dropList"`
	History  []SnapshotEntry  `json:"history"`
}

// SnapshotRecord is a persisted record. Index is the source row id.
type SnapshotRecord struct {
	Index    *int64 `json:"index"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Journal  string `json:"journal"`
}

// SnapshotEntry is a persisted history entry.
type SnapshotEntry struct {
	Decision string         `json:"decision"`
	Record   SnapshotRecord `json:"record"`
}

// Encode serializes state into a current-version snapshot.
func Encode(s triage.State) ([]byte, error) {
	snap := Snapshot{
		Version:  Version,
		Position: s.Position,
		KeepList: toRecords(s.Keep),
		DropList: toRecords(s.Drop),
		History:  make([]SnapshotEntry, 0, len(s.History)),
	}
	for _, h := range s.History {
		snap.History = append(snap.History, SnapshotEntry{Decision: h.Decision.String(), Record: toRecord(h.Record)})
	}
	return json.Marshal(snap)
}

func toRecords(rs []*triage.Record) []SnapshotRecord {
	out := make([]SnapshotRecord, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRecord(r))
	}
	return out
}

func toRecord(r *triage.Record) SnapshotRecord {
	if r == nil {
		return SnapshotRecord{}
	}
	return SnapshotRecord{Index: r.ID, Title: r.Title, Abstract: r.Abstract, Journal: r.Journal}
}

func (r SnapshotRecord) record() *triage.Record {
	return &triage.Record{ID: r.Index, Title: r.Title, Abstract: r.Abstract, Journal: r.Journal}
}

func (r SnapshotRecord) matches(rec *triage.Record) bool {
	if rec == nil || rec.Title != r.Title || rec.Abstract != r.Abstract || rec.Journal != r.Journal {
		return false
	}
	if (rec.ID == nil) != (r.Index == nil) {
		return false
	}
	return rec.ID == nil || *rec.ID == *r.Index
}

// Decode reads a snapshot of any known version. Every field is decoded on its own and
// falls back to its zero value when missing or wrong-shaped, so Decode only fails when
// the document is not a JSON object at all. History stops at the first malformed entry.
func Decode(data []byte) (Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Version: 1}
	if v, ok := decodeInt(raw["version"]); ok {
		snap.Version = int(v)
	}
	posKey := "position"
	if _, ok := raw[posKey]; !ok {
		posKey = "index"
	}
	if v, ok := decodeInt(raw[posKey]); ok {
		snap.Position = int(v)
	}
	snap.KeepList = decodeRecords(raw["keepList"])
	snap.DropList = decodeRecords(raw["dropList"])

	var entries []json.RawMessage
	if len(raw["history"]) > 0 && json.Unmarshal(raw["history"], &entries) == nil {
		for _, e := range entries {
			entry, ok := decodeEntry(e)
			if !ok {
				break
			}
			snap.History = append(snap.History, entry)
		}
	}
	return snap, nil
}

func decodeEntry(data json.RawMessage) (SnapshotEntry, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return SnapshotEntry{}, false
	}
	var decision string
	if err := json.Unmarshal(fields["decision"], &decision); err != nil {
		return SnapshotEntry{}, false
	}
	if _, err := triage.ParseDecision(decision); err != nil {
		return SnapshotEntry{}, false
	}
	body, ok := fields["record"]
	if !ok {
		body, ok = fields["paper"]
	}
	if !ok {
		return SnapshotEntry{}, false
	}
	rec, ok := decodeRecord(body)
	if !ok {
		return SnapshotEntry{}, false
	}
	return SnapshotEntry{Decision: strings.ToLower(decision), Record: rec}, true
}

func decodeRecords(data json.RawMessage) []SnapshotRecord {
	var items []json.RawMessage
	if len(data) == 0 || json.Unmarshal(data, &items) != nil {
		return nil
	}
	out := make([]SnapshotRecord, 0, len(items))
	for _, it := range items {
		if rec, ok := decodeRecord(it); ok {
			out = append(out, rec)
		}
	}
	return out
}

func decodeRecord(data json.RawMessage) (SnapshotRecord, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return SnapshotRecord{}, false
	}
	rec := SnapshotRecord{
		Title:    decodeString(fields["title"]),
		Abstract: decodeString(fields["abstract"]),
		Journal:  decodeString(fields["journal"]),
	}
	if v, ok := decodeInt(fields["index"]); ok {
		rec.Index = &v
	}
	return rec, true
}

func decodeString(data json.RawMessage) string {
	var s string
	if len(data) == 0 || json.Unmarshal(data, &s) != nil {
		return ""
	}
	return s
}

// decodeInt accepts JSON numbers and numeric strings.
func decodeInt(data json.RawMessage) (int64, bool) {
	if len(data) == 0 || strings.TrimSpace(string(data)) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		// float64(math.MaxInt64) rounds up to 2^63, which is out of range.
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
			f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, false
		}
		return int64(f), true
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}
