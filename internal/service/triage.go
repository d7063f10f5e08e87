package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jask/papertriage/internal/database"
	"github.com/jask/papertriage/internal/database/repository"
	"github.com/jask/papertriage/internal/loader"
	"github.com/jask/papertriage/internal/logging"
	"github.com/jask/papertriage/internal/session"
	"github.com/jask/papertriage/internal/triage"
)

var (
	// ErrNoSession is returned by mutations when no collection is open.
	ErrNoSession = errors.New("service: no active session")
	// ErrLoadSuperseded is returned by an Open whose load was cancelled by a later Open.
	ErrLoadSuperseded = errors.New("service: load superseded by a newer open")
	// ErrUnknownCollection is returned when an id is not among the configured collections.
	ErrUnknownCollection = errors.New("service: unknown collection")
)

// LoadFunc reads the records of one source file.
type LoadFunc func(ctx context.Context, path string) ([]*triage.Record, error)

// Session is an open collection.
type Session struct {
	ID     string
	Path   string
	Engine *triage.Engine
}

// CollectionInfo is one row of the collection picker.
type CollectionInfo struct {
	loader.Source
	Progress    session.Summary
	RecordCount int
}

// Remaining is the number of records without a decision, when the size is known.
func (c CollectionInfo) Remaining() int {
	if n := c.RecordCount - c.Progress.Classified(); n > 0 {
		return n
	}
	return 0
}

// TriageService owns the single active session: it loads collections, restores their
// progress and saves after every decision.
type TriageService struct {
	Store *session.Store
	Repo  *repository.CollectionRepo
	Dir   string
	Files []string
	Load  LoadFunc
	Log   *zap.Logger

	mu      sync.Mutex
	active  *Session
	gen     uint64
	pending context.CancelFunc
}

func (s *TriageService) logger() *zap.Logger {
	if s.Log == nil {
		return logging.Nop()
	}
	return s.Log
}

// Sources lists the configured collections.
func (s *TriageService) Sources() ([]loader.Source, error) {
	return loader.List(s.Dir, s.Files)
}

func (s *TriageService) source(id string) (loader.Source, error) {
	srcs, err := s.Sources()
	if err != nil {
		return loader.Source{}, err
	}
	for _, src := range srcs {
		if src.ID == id {
			return src, nil
		}
	}
	return loader.Source{}, fmt.Errorf("%w: %s", ErrUnknownCollection, id)
}

// Open loads collection id and restores its progress. Opening ends any active session.
// A second Open while a load is pending cancels the first, which then returns
// ErrLoadSuperseded. When the load fails no session is active.
func (s *TriageService) Open(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	if s.pending != nil {
		s.pending()
	}
	s.gen++
	gen := s.gen
	loadCtx, cancel := context.WithCancel(ctx)
	s.pending = cancel
	s.active = nil
	s.mu.Unlock()
	defer cancel()

	src, err := s.source(id)
	var records []*triage.Record
	if err == nil {
		load := s.Load
		if load == nil {
			load = loader.Load
		}
		records, err = load(loadCtx, src.Path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.logger().Info("load superseded", zap.String("collection", id))
		return nil, ErrLoadSuperseded
	}
	s.pending = nil
	if err != nil {
		s.logger().Warn("load failed", zap.String("collection", id), zap.Error(err))
		return nil, fmt.Errorf("open %s: %w", id, err)
	}

	state := s.Store.Load(ctx, id, records)
	sess := &Session{ID: id, Path: src.Path}
	sess.Engine = triage.NewEngine(records, state, s.saver(id))
	s.active = sess
	s.recordOpen(ctx, src, len(records))

	s.logger().Info("collection opened",
		zap.String("collection", id), zap.Int("records", len(records)), zap.Int("position", state.Position))
	return sess, nil
}

func (s *TriageService) recordOpen(ctx context.Context, src loader.Source, n int) {
	if s.Repo == nil {
		return
	}
	if err := s.Repo.Upsert(ctx, repository.Collection{ID: src.ID, Path: src.Path, RecordCount: n}); err != nil {
		s.logger().Warn("collection upsert failed", zap.String("collection", src.ID), zap.Error(err))
		return
	}
	if err := s.Repo.Touch(ctx, src.ID, database.Now()); err != nil {
		s.logger().Warn("collection touch failed", zap.String("collection", src.ID), zap.Error(err))
	}
}

// saver persists every engine mutation. A failed save is logged and the in-memory
// state stands.
func (s *TriageService) saver(id string) func(triage.State) {
	log := s.logger()
	return func(st triage.State) {
		if err := s.Store.Save(context.Background(), st); err != nil {
			log.Warn("save failed", zap.String("collection", id), zap.Int("position", st.Position), zap.Error(err))
		}
	}
}

// Close ends the active session and cancels any pending load.
func (s *TriageService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending()
		s.pending = nil
		s.gen++
	}
	s.active = nil
}

// Active returns the open session or nil.
func (s *TriageService) Active() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Commit applies d to the current record of the active session.
func (s *TriageService) Commit(d triage.Decision) (bool, error) {
	sess := s.Active()
	if sess == nil {
		return false, ErrNoSession
	}
	ok := sess.Engine.Commit(d)
	if ok {
		s.logger().Debug("decision", zap.String("collection", sess.ID), zap.Stringer("decision", d))
	}
	return ok, nil
}

// Undo reverses the last decision of the active session.
func (s *TriageService) Undo() (bool, error) {
	sess := s.Active()
	if sess == nil {
		return false, ErrNoSession
	}
	ok := sess.Engine.Undo()
	if ok {
		s.logger().Debug("undo", zap.String("collection", sess.ID))
	}
	return ok, nil
}

// State returns the progress of id: the live state when it is open, otherwise the
// persisted one.
func (s *TriageService) State(ctx context.Context, id string) triage.State {
	if sess := s.Active(); sess != nil && sess.ID == id {
		return sess.Engine.Snapshot()
	}
	st, _ := s.Store.Peek(ctx, id)
	return st
}

// Collections lists the configured collections with their stored progress.
func (s *TriageService) Collections(ctx context.Context) ([]CollectionInfo, error) {
	srcs, err := s.Sources()
	if err != nil {
		return nil, err
	}
	known := map[string]repository.Collection{}
	if s.Repo != nil {
		list, err := s.Repo.List(ctx)
		if err != nil {
			s.logger().Warn("list collections failed", zap.Error(err))
		}
		for _, c := range list {
			known[c.ID] = c
		}
	}
	out := make([]CollectionInfo, 0, len(srcs))
	for _, src := range srcs {
		info := CollectionInfo{Source: src, Progress: s.Store.Summary(ctx, src.ID)}
		if c, ok := known[src.ID]; ok {
			info.RecordCount = c.RecordCount
		}
		out = append(out, info)
	}
	return out, nil
}

