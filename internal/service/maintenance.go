package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/papertriage/internal/database"
	"github.com/jask/papertriage/internal/session"
)

// MaintenanceService houses destructive actions surfaced through the TUI and CLI.
type MaintenanceService struct {
	DB     *sql.DB
	Store  *session.Store
	Triage *TriageService
}

// ResetCollection discards the stored progress of one collection. An open session for
// it is closed first so the next save cannot resurrect the old state.
func (s *MaintenanceService) ResetCollection(ctx context.Context, id string) error {
	if s.Store == nil {
		return fmt.Errorf("maintenance: store not configured")
	}
	if s.Triage != nil {
		if sess := s.Triage.Active(); sess != nil && sess.ID == id {
			s.Triage.Close()
		}
	}
	return s.Store.Reset(ctx, id)
}

// Reset wipes all progress and logs. It keeps the schema intact so the app can continue running.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil || s.Store == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if s.Triage != nil {
		s.Triage.Close()
	}
	if err := s.Store.ResetAll(ctx); err != nil {
		return err
	}
	if err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		tables := []string{
			"exports",
			"snapshots",
			"collections",
		}
		for _, t := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	return nil
}
