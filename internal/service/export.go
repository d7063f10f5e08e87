package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jask/papertriage/internal/database"
	"github.com/jask/papertriage/internal/database/repository"
	"github.com/jask/papertriage/internal/export"
	"github.com/jask/papertriage/internal/logging"
)

// ErrExportOverwritesSource is returned when an export path resolves to a collection file.
var ErrExportOverwritesSource = errors.New("service: export would overwrite the collection file")

// ExportService writes collection results to disk and logs each export.
type ExportService struct {
	Triage   *TriageService
	Exports  *repository.ExportRepo
	Dir      string
	Encoding string
	Log      *zap.Logger
}

// ExportRequest selects what to export.
type ExportRequest struct {
	Collection string
	Kind       export.Kind
	Format     export.Format
	// Path overrides the default <dir>/<name> location.
	Path string
}

// Write emits the rows of req to w and returns how many were written. CSV output is
// encoded with the configured encoding; XLSX is binary and written as is. An id that
// is not a configured collection fails with ErrUnknownCollection.
func (s *ExportService) Write(ctx context.Context, req ExportRequest, w io.Writer) (int, error) {
	if _, err := s.Triage.source(req.Collection); err != nil {
		return 0, err
	}
	return s.write(ctx, req, w)
}

func (s *ExportService) write(ctx context.Context, req ExportRequest, w io.Writer) (int, error) {
	rows := export.Rows(req.Kind, s.Triage.State(ctx, req.Collection))
	if req.Format == export.XLSX {
		return len(rows), export.Write(w, req.Kind, req.Format, rows)
	}
	enc, err := export.EncodeWriter(w, s.Encoding)
	if err != nil {
		return 0, err
	}
	if err := export.Write(enc, req.Kind, req.Format, rows); err != nil {
		_ = enc.Close()
		return 0, err
	}
	return len(rows), enc.Close()
}

// Export writes req to a file and records it in the export log.
func (s *ExportService) Export(ctx context.Context, req ExportRequest) (repository.ExportRecord, error) {
	if _, err := s.Triage.source(req.Collection); err != nil {
		return repository.ExportRecord{}, err
	}
	path := req.Path
	if path == "" {
		path = filepath.Join(s.Dir, export.FileName(req.Collection, req.Kind, req.Format))
	}
	if err := s.checkTarget(ctx, req.Collection, path); err != nil {
		return repository.ExportRecord{}, err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return repository.ExportRecord{}, fmt.Errorf("mkdir export dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return repository.ExportRecord{}, fmt.Errorf("create export: %w", err)
	}
	n, err := s.write(ctx, req, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return repository.ExportRecord{}, fmt.Errorf("export %s: %w", req.Collection, err)
	}

	rec := repository.ExportRecord{
		ID:           uuid.NewString(),
		CollectionID: req.Collection,
		Kind:         string(req.Kind),
		Format:       string(req.Format),
		RowCount:     n,
		Path:         path,
		CreatedAt:    database.Now(),
	}
	if s.Exports != nil {
		if err := s.Exports.Insert(ctx, rec); err != nil {
			s.logger().Warn("export log failed", zap.String("collection", req.Collection), zap.Error(err))
		}
	}
	s.logger().Info("exported",
		zap.String("collection", req.Collection), zap.String("kind", rec.Kind),
		zap.String("format", rec.Format), zap.Int("rows", n), zap.String("path", path))
	return rec, nil
}

// checkTarget refuses a path that is one of the configured collection files, unless
// the file is an earlier export of the same collection.
func (s *ExportService) checkTarget(ctx context.Context, collection, path string) error {
	srcs, err := s.Triage.Sources()
	if err != nil {
		return err
	}
	for _, src := range srcs {
		if !samePath(path, src.Path) {
			continue
		}
		if src.ID != collection && s.exported(ctx, collection, path) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrExportOverwritesSource, path)
	}
	return nil
}

func (s *ExportService) exported(ctx context.Context, collection, path string) bool {
	recent, err := s.Recent(ctx, collection)
	if err != nil {
		s.logger().Warn("export log read failed", zap.String("collection", collection), zap.Error(err))
		return false
	}
	for _, rec := range recent {
		if samePath(path, rec.Path) {
			return true
		}
	}
	return false
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	if absA == absB {
		return true
	}
	ia, errA := os.Stat(absA)
	ib, errB := os.Stat(absB)
	return errA == nil && errB == nil && os.SameFile(ia, ib)
}

func (s *ExportService) logger() *zap.Logger {
	if s.Log == nil {
		return logging.Nop()
	}
	return s.Log
}

// Recent returns the exports of collection, newest first.
func (s *ExportService) Recent(ctx context.Context, collection string) ([]repository.ExportRecord, error) {
	if s.Exports == nil {
		return nil, nil
	}
	return s.Exports.ListByCollection(ctx, collection)
}
