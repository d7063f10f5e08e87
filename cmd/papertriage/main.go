// Package main runs the papertriage terminal app and its maintenance commands.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jask/papertriage/internal/config"
	"github.com/jask/papertriage/internal/database"
	"github.com/jask/papertriage/internal/database/repository"
	"github.com/jask/papertriage/internal/loader"
	"github.com/jask/papertriage/internal/logging"
	"github.com/jask/papertriage/internal/service"
	"github.com/jask/papertriage/internal/session"
	"github.com/jask/papertriage/internal/tui"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "papertriage",
	Short: "Sort literature search results into keep and drop lists",
	Long: `papertriage shows the records of a literature search export one card at a time.
Swipe or press → to keep a record, ← to drop it and ↓ to undo. Progress is saved
after every decision and restored when the collection is opened again.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runTUI,
}

// app holds everything a command needs.
type app struct {
	cfg      config.Config
	db       *sql.DB
	log      *zap.Logger
	triage   *service.TriageService
	exports  *service.ExportService
	maint    *service.MaintenanceService
	closeLog func() error
}

func (a *app) Close() {
	if a.triage != nil {
		a.triage.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.log.Sync()
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, closeLog, err := logging.New(cfg.Logging())
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	db, err := database.OpenMigrated(cfg.Database.Path)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("open db: %w", err)
	}

	var backend session.Backend
	switch cfg.Store.Backend {
	case config.BackendFile:
		backend = &session.FileBackend{Dir: cfg.Store.Dir}
	default:
		backend = &session.SQLiteBackend{Snapshots: repository.NewSnapshotRepo(db)}
	}
	store := session.NewStore(backend, log)

	triage := &service.TriageService{
		Store: store,
		Repo:  repository.NewCollectionRepo(db),
		Dir:   cfg.Collections.Dir,
		Files: cfg.Collections.Files,
		Log:   log.Named("triage"),
	}
	a := &app{
		cfg:    cfg,
		db:     db,
		log:    log,
		triage: triage,
		exports: &service.ExportService{
			Triage:   triage,
			Exports:  repository.NewExportRepo(db),
			Dir:      cfg.Export.Dir,
			Encoding: cfg.Export.Encoding,
			Log:      log.Named("export"),
		},
		maint:    &service.MaintenanceService{DB: db, Store: store, Triage: triage},
		closeLog: closeLog,
	}
	log.Info("startup",
		zap.String("version", version),
		zap.String("collections", cfg.Collections.Dir),
		zap.String("store", cfg.Store.Backend))
	return a, nil
}

func runTUI(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var changes <-chan struct{}
	if len(a.cfg.Collections.Files) == 0 {
		ch, err := loader.Watch(ctx, a.cfg.Collections.Dir, 250*time.Millisecond)
		if err != nil {
			a.log.Warn("collections watch disabled", zap.Error(err))
		} else {
			changes = ch
		}
	}

	model := tui.New(ctx, tui.Services{Triage: a.triage, Export: a.exports, Maintenance: a.maint}, tui.Options{
		Gesture:   a.cfg.Gesture(),
		CellUnits: a.cfg.Triage.CellUnits,
		Changes:   changes,
		Log:       a.log,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
