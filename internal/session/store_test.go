package session

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jask/papertriage/internal/database"
	"github.com/jask/papertriage/internal/database/repository"
	"github.com/jask/papertriage/internal/triage"
)

func abc() []*triage.Record {
	var out []*triage.Record
	for i, title := range []string{"A", "B", "C"} {
		id := int64(i + 1)
		out = append(out, &triage.Record{ID: &id, Title: title, Abstract: title + " abstract", Journal: "J"})
	}
	return out
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	db, err := database.OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return map[string]Backend{
		"sqlite": &SQLiteBackend{Snapshots: repository.NewSnapshotRepo(db)},
		"file":   &FileBackend{Dir: filepath.Join(t.TempDir(), "snapshots")},
	}
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestStoreReloadReproducesState(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := testCtx(t)
			store := NewStore(backend, nil)
			recs := abc()

			state := store.Load(ctx, "dbpia_data_new.xlsx", recs)
			require.Zero(t, state.Position)

			e := triage.NewEngine(recs, state, func(s triage.State) {
				require.NoError(t, store.Save(ctx, s))
			})
			e.Commit(triage.Keep)
			e.Commit(triage.Drop)
			want := e.Snapshot()

			fresh := abc()
			got := store.Load(ctx, "dbpia_data_new.xlsx", fresh)
			require.Equal(t, 2, got.Position)
			require.NoError(t, got.Check(len(fresh)))
			require.Len(t, got.History, 2)
			require.Equal(t, triage.Keep, got.History[0].Decision)
			require.Equal(t, triage.Drop, got.History[1].Decision)
			require.Same(t, fresh[0], got.Keep[0], "restored records bind to loaded instances")
			require.Same(t, fresh[1], got.Drop[0])
			require.Equal(t, *want.Keep[0], *got.Keep[0])
			require.Equal(t, *want.Drop[0], *got.Drop[0])

			other := store.Load(ctx, "kci_data_new.xlsx", fresh)
			require.Zero(t, other.Position, "collections have independent slots")
		})
	}
}

func TestStoreLoadMalformedSnapshotDefaults(t *testing.T) {
	cases := map[string]string{
		"not json":         `{{{`,
		"array":            `[1,2,3]`,
		"wrong types":      `{"position":"x","keepList":5,"dropList":{},"history":"nope"}`,
		"bad decision":     `{"position":1,"history":[{"decision":"maybe","record":{"title":"A"}}]}`,
		"empty object":     `{}`,
		"missing record":   `{"position":1,"history":[{"decision":"keep"}]}`,
		"null record":      `{"position":1,"history":[{"decision":"keep","record":null}]}`,
		"fractional index": `{"index":1.5}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := testCtx(t)
			backend := &FileBackend{Dir: t.TempDir()}
			require.NoError(t, backend.Put(ctx, "c", []byte(body)))
			state := NewStore(backend, nil).Load(ctx, "c", abc())
			require.Zero(t, state.Position)
			require.Empty(t, state.History)
			require.Empty(t, state.Keep)
			require.Empty(t, state.Drop)
		})
	}
}

func TestStoreLoadUnversionedSnapshot(t *testing.T) {
	ctx := testCtx(t)
	backend := &FileBackend{Dir: t.TempDir()}
	body := `{
		"index": 2,
		"keepList": [{"index": 1, "title": "A", "abstract": "A abstract", "journal": "J"}],
		"dropList": [{"index": 2, "title": "B", "abstract": "B abstract", "journal": "J"}],
		"history": [
			{"decision": "keep", "paper": {"index": 1, "title": "A", "abstract": "A abstract", "journal": "J"}},
			{"decision": "drop", "paper": {"index": 2, "title": "B", "abstract": "B abstract", "journal": "J"}}
		]
	}`
	require.NoError(t, backend.Put(ctx, "riss_data_new.xlsx", []byte(body)))

	recs := abc()
	state := NewStore(backend, nil).Load(ctx, "riss_data_new.xlsx", recs)
	require.Equal(t, 2, state.Position)
	require.NoError(t, state.Check(len(recs)))
	require.Same(t, recs[0], state.Keep[0])
	require.Same(t, recs[1], state.Drop[0])
}

func TestStoreLoadTruncatesStaleHistory(t *testing.T) {
	ctx := testCtx(t)
	core, logs := observer.New(zapcore.WarnLevel)
	backend := &FileBackend{Dir: t.TempDir()}
	store := NewStore(backend, zap.New(core))

	recs := abc()
	e := triage.NewEngine(recs, store.Load(ctx, "c", recs), func(s triage.State) {
		require.NoError(t, store.Save(ctx, s))
	})
	e.Commit(triage.Keep)
	e.Commit(triage.Drop)
	e.Commit(triage.Keep)

	shorter := abc()[:2]
	state := store.Load(ctx, "c", shorter)
	require.Equal(t, 2, state.Position)
	require.NoError(t, state.Check(len(shorter)))
	require.Len(t, state.Keep, 1)
	require.Len(t, state.Drop, 1)
	require.Equal(t, 1, logs.FilterMessage("snapshot longer than collection, truncating").Len())
	require.Equal(t, 1, logs.FilterMessage("snapshot lists disagree with history, rebuilt").Len())
}

func TestStoreLoadRebuildsListsAndPositionFromHistory(t *testing.T) {
	ctx := testCtx(t)
	backend := &FileBackend{Dir: t.TempDir()}
	body := `{"version":2,"position":7,"keepList":[],"dropList":[{"title":"zzz"}],
		"history":[{"decision":"keep","record":{"index":1,"title":"A","abstract":"A abstract","journal":"J"}}]}`
	require.NoError(t, backend.Put(ctx, "c", []byte(body)))

	recs := abc()
	state := NewStore(backend, nil).Load(ctx, "c", recs)
	require.Equal(t, 1, state.Position)
	require.NoError(t, state.Check(len(recs)))
	require.Same(t, recs[0], state.Keep[0])
	require.Empty(t, state.Drop)
}

func TestStoreLoadKeepsPersistedCopyWhenSourceChanged(t *testing.T) {
	ctx := testCtx(t)
	backend := &FileBackend{Dir: t.TempDir()}
	store := NewStore(backend, nil)
	recs := abc()
	e := triage.NewEngine(recs, store.Load(ctx, "c", recs), func(s triage.State) { _ = store.Save(ctx, s) })
	e.Commit(triage.Drop)

	changed := abc()
	changed[0].Title = "A (revised)"
	state := store.Load(ctx, "c", changed)
	require.Equal(t, 1, state.Position)
	require.NotSame(t, changed[0], state.Drop[0])
	require.Equal(t, "A", state.Drop[0].Title)
	require.NoError(t, state.Check(len(changed)))
}

func TestStoreSummaryPeekAndReset(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := testCtx(t)
			store := NewStore(backend, nil)
			recs := abc()
			e := triage.NewEngine(recs, store.Load(ctx, "a", recs), func(s triage.State) { _ = store.Save(ctx, s) })
			e.Commit(triage.Keep)
			e.Commit(triage.Drop)
			e.Commit(triage.Keep)

			sum := store.Summary(ctx, "a")
			require.True(t, sum.Exists)
			require.Equal(t, 3, sum.Classified())
			require.Equal(t, 2, sum.Keep)
			require.Equal(t, 1, sum.Drop)

			peek, ok := store.Peek(ctx, "a")
			require.True(t, ok)
			require.Equal(t, 3, peek.Position)
			require.Equal(t, []string{"A", "C"}, []string{peek.Keep[0].Title, peek.Keep[1].Title})

			require.NoError(t, store.Save(ctx, triage.State{CollectionID: "b"}))
			require.NoError(t, store.Reset(ctx, "a"))
			require.False(t, store.Summary(ctx, "a").Exists)
			require.True(t, store.Summary(ctx, "b").Exists)

			require.NoError(t, store.ResetAll(ctx))
			require.False(t, store.Summary(ctx, "b").Exists)
			_, ok = store.Peek(ctx, "b")
			require.False(t, ok)
		})
	}
}

type failingBackend struct{ Backend }

func (failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (failingBackend) Put(context.Context, string, []byte) error { return errors.New("disk on fire") }

func TestStoreBackendErrors(t *testing.T) {
	ctx := testCtx(t)
	store := NewStore(failingBackend{}, nil)
	state := store.Load(ctx, "c", abc())
	require.Zero(t, state.Position)
	require.Error(t, store.Save(ctx, triage.State{CollectionID: "c"}))
	require.Error(t, store.Save(ctx, triage.State{}))
}

func TestFileBackendEscapesIDs(t *testing.T) {
	ctx := testCtx(t)
	backend := &FileBackend{Dir: t.TempDir()}
	require.NoError(t, backend.Put(ctx, "sub/dir name.xlsx", []byte(`{}`)))
	all, err := backend.List(ctx)
	require.NoError(t, err)
	require.Contains(t, all, "sub/dir name.xlsx")
	require.NoError(t, backend.Delete(ctx, "sub/dir name.xlsx"))
	require.NoError(t, backend.Delete(ctx, "sub/dir name.xlsx"))

	empty := &FileBackend{Dir: filepath.Join(t.TempDir(), "missing")}
	all, err = empty.List(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestDecodeIntRange(t *testing.T) {
	cases := map[string]struct {
		in   string
		want int64
		ok   bool
	}{
		"integer":        {`42`, 42, true},
		"exponent":       {`1e3`, 1000, true},
		"numeric string": {`" 7 "`, 7, true},
		"min int64":      {`-9223372036854775808`, math.MinInt64, true},
		"two to the 63":  {`9223372036854775808`, 0, false},
		"huge":           {`1e30`, 0, false},
		"huge negative":  {`-1e30`, 0, false},
		"fraction":       {`2.5`, 0, false},
		"null":           {`null`, 0, false},
		"string huge":    {`"1e30"`, 0, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := decodeInt(json.RawMessage(tc.in))
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeRecordDropsOutOfRangeIndex(t *testing.T) {
	rec, ok := decodeRecord(json.RawMessage(`{"index":1e30,"title":"A"}`))
	require.True(t, ok)
	require.Nil(t, rec.Index)
	require.Equal(t, "A", rec.Title)
}
