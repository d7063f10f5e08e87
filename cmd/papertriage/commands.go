package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jask/papertriage/internal/config"
	"github.com/jask/papertriage/internal/export"
	"github.com/jask/papertriage/internal/service"
)

var (
	exportKind   string
	exportFormat string
	exportOut    string
	resetAll     bool
	initForce    bool
)

func init() {
	exportCmd.Flags().StringVar(&exportKind, "kind", string(export.Lists), "what to export: lists or history")
	exportCmd.Flags().StringVar(&exportFormat, "format", string(export.CSV), "output format: csv or xlsx")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path, '-' for stdout (default <export.dir>/<name>)")
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "reset every collection and the export log")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")

	rootCmd.AddCommand(exportCmd, statusCmd, resetCmd, initCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <collection>",
	Short: "Write the decisions of a collection to a file",
	Long: `Write the decisions of a collection to a file.

Examples:
  # Keep and drop columns, the default
  papertriage export kci_data_new.xlsx

  # One row per decision in decision order
  papertriage export kci_data_new.xlsx --kind history --format xlsx

  # To stdout
  papertriage export kci_data_new.xlsx -o -`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the progress of every collection",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var resetCmd = &cobra.Command{
	Use:   "reset [collection]",
	Short: "Discard saved progress",
	Long: `Discard the saved progress of one collection, or of all of them with --all.

Examples:
  papertriage reset kci_data_new.xlsx
  papertriage reset --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReset,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the current settings",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func runExport(cmd *cobra.Command, args []string) error {
	kind, err := export.ParseKind(exportKind)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	req := service.ExportRequest{Collection: args[0], Kind: kind, Format: format}
	if exportOut == "-" {
		_, err := a.exports.Write(cmd.Context(), req, cmd.OutOrStdout())
		return err
	}
	req.Path = exportOut
	rec, err := a.exports.Export(cmd.Context(), req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", rec.RowCount, rec.Path)
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	infos, err := a.triage.Collections(cmd.Context())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no collections in %s\n", a.cfg.Collections.Dir)
		return nil
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("collection", "keep", "drop", "remaining", "saved", "last export")
	for _, info := range infos {
		remaining := "?"
		if info.RecordCount > 0 {
			remaining = strconv.Itoa(info.Remaining())
		}
		saved := "no"
		if info.Progress.Exists {
			saved = "yes"
		}
		last := "-"
		if recent, err := a.exports.Recent(cmd.Context(), info.ID); err != nil {
			a.log.Warn("export log read failed", zap.String("collection", info.ID), zap.Error(err))
		} else if len(recent) > 0 {
			last = recent[0].CreatedAt.Local().Format("2006-01-02 15:04") + " " + recent[0].Kind
		}
		t.Row(info.ID, strconv.Itoa(info.Progress.Keep), strconv.Itoa(info.Progress.Drop), remaining, saved, last)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	if resetAll == (len(args) == 1) {
		return errors.New("reset: name one collection or pass --all")
	}
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if resetAll {
		if err := a.maint.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "all progress reset")
		return nil
	}
	if err := a.maint.ResetCollection(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "progress reset for %s\n", args[0])
	return nil
}

func runInit(cmd *cobra.Command, _ []string) error {
	path := config.Path()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s exists, pass --force to overwrite", path)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
