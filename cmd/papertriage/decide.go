package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jask/papertriage/internal/gesture"
	"github.com/jask/papertriage/internal/triage"
)

var decideCmd = &cobra.Command{
	Use:   "decide <collection> <keep|drop|undo>...",
	Short: "Apply decisions to a collection without the card view",
	Long: `Apply decisions to the current records of a collection, in order. Keep and drop
play the same scripted swipe as the H and L keys before committing, so the pacing
follows triage.interval. Progress is saved after every step.

Examples:
  papertriage decide kci_data_new.xlsx keep keep drop
  papertriage decide kci_data_new.xlsx undo`,
	Args: cobra.MinimumNArgs(2),
	RunE: runDecide,
}

func init() {
	rootCmd.AddCommand(decideCmd)
}

func parseIntents(words []string) ([]gesture.Intent, error) {
	out := make([]gesture.Intent, 0, len(words))
	for _, w := range words {
		switch strings.ToLower(strings.TrimSpace(w)) {
		case "keep":
			out = append(out, gesture.Keep)
		case "drop":
			out = append(out, gesture.Drop)
		case "undo":
			out = append(out, gesture.Undo)
		default:
			return nil, fmt.Errorf("decide: unknown step %q, want keep, drop or undo", w)
		}
	}
	return out, nil
}

func runDecide(cmd *cobra.Command, args []string) error {
	steps, err := parseIntents(args[1:])
	if err != nil {
		return err
	}
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	sess, err := a.triage.Open(ctx, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	gi := gesture.New(a.cfg.Gesture())
	for _, step := range steps {
		if step == gesture.Undo {
			ok, err := a.triage.Undo()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "nothing to undo")
				continue
			}
			fmt.Fprintf(out, "undo  %s\n", sess.Engine.Current().Title)
			continue
		}

		rec := sess.Engine.Current()
		if rec == nil {
			fmt.Fprintln(out, "all records classified")
			break
		}
		in, err := gi.Play(ctx, step, nil)
		if err != nil {
			return fmt.Errorf("decide: %w", err)
		}
		d := triage.Keep
		if in == gesture.Drop {
			d = triage.Drop
		}
		if _, err := a.triage.Commit(d); err != nil {
			return err
		}
		fmt.Fprintf(out, "%-5s %s\n", d, rec.Title)
	}

	keep, drop, pos := sess.Engine.Counts()
	a.log.Info("decide", zap.String("collection", sess.ID), zap.Int("steps", len(steps)), zap.Int("position", pos))
	fmt.Fprintf(out, "keep %d, drop %d, %d of %d classified\n", keep, drop, pos, sess.Engine.Total())
	return nil
}
