package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jask/papertriage/internal/database"
	"github.com/jask/papertriage/internal/database/repository"
	"github.com/jask/papertriage/internal/loader"
	"github.com/jask/papertriage/internal/session"
	"github.com/jask/papertriage/internal/triage"
)

type harness struct {
	dir     string
	db      *sql.DB
	store   *session.Store
	triage  *TriageService
	exports *ExportService
	maint   *MaintenanceService
	logs    *observer.ObservedLogs
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	papers := filepath.Join(dir, "papers")
	require.NoError(t, os.MkdirAll(papers, 0o755))
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(papers, name), []byte(body), 0o644))
	}
	write("a.csv", "번호,논문명,초록,학술지명\n1,A,a,J\n2,B,b,J\n3,C,c,J\n")
	write("b.csv", "index,title,abstract,journal\n10,\"Roads, rails\",x,K\n")
	write("broken.xlsx", "not a workbook")

	db, err := database.OpenMigrated(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	store := session.NewStore(&session.SQLiteBackend{Snapshots: repository.NewSnapshotRepo(db)}, log)
	ts := &TriageService{Store: store, Repo: repository.NewCollectionRepo(db), Dir: papers, Log: log}
	return &harness{
		dir:     dir,
		db:      db,
		store:   store,
		triage:  ts,
		exports: &ExportService{Triage: ts, Exports: repository.NewExportRepo(db), Dir: filepath.Join(dir, "out"), Log: log},
		maint:   &MaintenanceService{DB: db, Store: store, Triage: ts},
		logs:    logs,
	}
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestOpenCommitUndoPersists(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	h := newHarness(t)

	sess, err := h.triage.Open(ctx, "a.csv")
	require.NoError(t, err)
	require.Equal(t, 3, sess.Engine.Total())
	require.Equal(t, "A", sess.Engine.Current().Title)

	ok, err := h.triage.Commit(triage.Keep)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = h.triage.Commit(triage.Drop)
	require.NoError(t, err)
	ok, err = h.triage.Undo()
	require.NoError(t, err)
	require.True(t, ok)

	h.triage.Close()
	require.Nil(t, h.triage.Active())

	sess, err = h.triage.Open(ctx, "a.csv")
	require.NoError(t, err)
	keep, drop, pos := sess.Engine.Counts()
	require.Equal(t, 1, keep)
	require.Equal(t, 0, drop)
	require.Equal(t, 1, pos)
	require.Equal(t, "B", sess.Engine.Current().Title)
}

func TestMutationsWithoutSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	_, err := h.triage.Commit(triage.Keep)
	require.ErrorIs(t, err, ErrNoSession)
	_, err = h.triage.Undo()
	require.ErrorIs(t, err, ErrNoSession)
}

func TestOpenSwitchesCollections(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	h := newHarness(t)

	_, err := h.triage.Open(ctx, "a.csv")
	require.NoError(t, err)
	_, err = h.triage.Commit(triage.Keep)
	require.NoError(t, err)

	sess, err := h.triage.Open(ctx, "b.csv")
	require.NoError(t, err)
	require.Equal(t, "b.csv", h.triage.Active().ID)
	require.Zero(t, sess.Engine.Snapshot().Position, "collections keep independent progress")
}

func TestOpenFailureLeavesNoSession(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	h := newHarness(t)

	_, err := h.triage.Open(ctx, "a.csv")
	require.NoError(t, err)

	_, err = h.triage.Open(ctx, "broken.xlsx")
	require.Error(t, err)
	require.Nil(t, h.triage.Active())

	_, err = h.triage.Open(ctx, "missing.csv")
	require.ErrorIs(t, err, ErrUnknownCollection)
	require.Nil(t, h.triage.Active())
}

func TestSecondOpenSupersedesPendingLoad(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	h := newHarness(t)

	started := make(chan struct{})
	h.triage.Load = func(ctx context.Context, path string) ([]*triage.Record, error) {
		if filepath.Base(path) == "b.csv" {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return loader.Load(ctx, path)
	}

	errc := make(chan error, 1)
	go func() {
		_, err := h.triage.Open(ctx, "b.csv")
		errc <- err
	}()
	<-started

	sess, err := h.triage.Open(ctx, "a.csv")
	require.NoError(t, err)
	require.ErrorIs(t, <-errc, ErrLoadSuperseded)
	require.Same(t, sess, h.triage.Active())
	require.Equal(t, 1, h.logs.FilterMessage("load superseded").Len())
}

func TestCloseCancelsPendingLoad(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	h := newHarness(t)

	started := make(chan struct{})
	h.triage.Load = func(ctx context.Context, path string) ([]*triage.Record, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	errc := make(chan error, 1)
	go func() {
		_, err := h.triage.Open(ctx, "a.csv")
		errc <- err
	}()
	<-started
	h.triage.Close()
	require.ErrorIs(t, <-errc, ErrLoadSuperseded)
	require.Nil(t, h.triage.Active())
}

type brokenBackend struct{ session.Backend }

func (brokenBackend) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (brokenBackend) Put(context.Context, string, []byte) error { return errors.New("read-only") }

func TestSaveFailureKeepsState(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	h := newHarness(t)
	h.triage.Store = session.NewStore(brokenBackend{}, nil)

	_, err := h.triage.Open(ctx, "a.csv")
	require.NoError(t, err)
	ok, err := h.triage.Commit(triage.Drop)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, h.triage.Active().Engine.Snapshot().Position)
	require.Equal(t, 1, h.logs.FilterMessage("save failed").Len())
}

func TestCollectionsReportProgress(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)
	h := newHarness(t)

	_, err := h.triage.Open(ctx, "a.csv")
	require.NoError(t, err)
	_, _ = h.triage.Commit(triage.Keep)
	_, _ = h.triage.Commit(triage.Drop)

	infos, err := h.triage.Collections(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 3)
	require.Equal(t, "a.csv", infos[0].ID)
	require.Equal(t, 2, infos[0].Progress.Classified())
	require.Equal(t, 3, infos[0].RecordCount)
	require.Equal(t, 1, infos[0].Remaining())
	require.Equal(t, "b.csv", infos[1].ID)
	require.False(t, infos[1].Progress.Exists)
	require.Equal(t, "broken.xlsx", infos[2].ID)

	c, err := h.triage.Repo.Get(ctx, "a.csv")
	require.NoError(t, err)
	require.NotNil(t, c.OpenedAt)
}
