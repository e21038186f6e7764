package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/daviddao/liftplan/pkg/encode"
	"github.com/daviddao/liftplan/pkg/model"
	"github.com/daviddao/liftplan/pkg/planner"
	"github.com/daviddao/liftplan/pkg/store"
)

// applyAttempts bounds how often apply reloads a run after losing a race
// for the next generation to another process.
const applyAttempts = 3

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Record and replay trajectories in the database",
	}
	cmd.AddCommand(
		newRunStartCmd(a),
		newRunApplyCmd(a),
		newRunShowCmd(a),
		newRunHistoryCmd(a),
		newRunListCmd(a),
		newRunRmCmd(a),
	)
	return cmd
}

func newRunStartCmd(a *app) *cobra.Command {
	var domainPath, problemPath string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a run at the problem's initial state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dAbs, err := filepath.Abs(domainPath)
			if err != nil {
				return err
			}
			pAbs, err := filepath.Abs(problemPath)
			if err != nil {
				return err
			}
			t, err := a.loadTask(dAbs, pAbs)
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			p := t.Problem()
			r := &model.Run{
				Domain:      p.Domain.Name,
				Problem:     p.Name,
				DomainFile:  dAbs,
				ProblemFile: pAbs,
			}
			if err := s.CreateRun(r, encode.State(p.Init, p.Objects)); err != nil {
				return fmt.Errorf("start run: %w", err)
			}
			a.log.Info("run started", zap.String("run", r.ID), zap.String("problem", r.Problem))
			if a.cfg.JSON {
				a.printJSON(r)
				return nil
			}
			fmt.Fprintln(a.out, r.ID)
			return nil
		},
	}
	taskFlags(cmd, &domainPath, &problemPath, true)
	return cmd
}

// resumeRun reloads a run's files and installs its latest generation.
func (a *app) resumeRun(s store.StoreInterface, id string) (*model.Run, *planner.Task, error) {
	r, err := s.GetRun(id)
	if err != nil {
		return nil, nil, err
	}
	t, err := a.loadTask(r.DomainFile, r.ProblemFile)
	if err != nil {
		return nil, nil, fmt.Errorf("run %s: %w", r.ID, err)
	}
	if err := resumeLatest(s, r.ID, t); err != nil {
		return nil, nil, err
	}
	return r, t, nil
}

func resumeLatest(s store.StoreInterface, runID string, t *planner.Task) error {
	snap, err := s.LatestState(runID)
	if err != nil {
		return err
	}
	state, err := encode.ParseState(snap.Facts, t.Problem().Objects)
	if err != nil {
		return fmt.Errorf("run %s generation %d: %w", runID, snap.Generation, err)
	}
	return t.Resume(state, snap.Generation)
}

func newRunApplyCmd(a *app) *cobra.Command {
	var action string
	cmd := &cobra.Command{
		Use:   "apply <run-id>",
		Short: "Apply an action to the latest state of a run and record the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			r, t, err := a.resumeRun(s, args[0])
			if err != nil {
				return err
			}
			name, params, err := parseAction(t, action)
			if err != nil {
				return err
			}
			text := encode.Action(name, params, t.Problem().Objects)

			snap, err := applyAndRecord(s, r.ID, t, name, params, text)
			if err != nil {
				return err
			}
			a.log.Info("action recorded",
				zap.String("run", r.ID),
				zap.String("action", text),
				zap.Int64("generation", snap.Generation),
			)
			if a.cfg.JSON {
				a.printJSON(snap)
				return nil
			}
			fmt.Fprintf(a.out, "generation %d: %s\n", snap.Generation, text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&action, "action", "a", "", `ground action, e.g. "(drive t1 l1 l2 c1)"`)
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

// applyAndRecord applies the action to t and records the new generation.
// When another writer recorded that generation first, t is moved to the
// run's latest state and the action is tried again there.
func applyAndRecord(s store.StoreInterface, runID string, t *planner.Task, name string, params model.Tuple, text string) (*model.Snapshot, error) {
	for attempt := 1; ; attempt++ {
		ok, gen, err := t.Apply(name, params)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%s is not applicable at generation %d", text, gen)
		}
		snap := &model.Snapshot{
			RunID:      runID,
			Generation: gen,
			Action:     text,
			Facts:      encode.State(t.State(), t.Problem().Objects),
		}
		err = s.RecordState(snap)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, store.ErrGenerationExists) || attempt == applyAttempts {
			return nil, fmt.Errorf("record state: %w", err)
		}
		if err := resumeLatest(s, runID, t); err != nil {
			return nil, err
		}
	}
}

func newRunShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the latest state of a run and its applicable actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			r, t, err := a.resumeRun(s, args[0])
			if err != nil {
				return err
			}
			actions, err := t.ApplicableActions(cmd.Context())
			if err != nil {
				return err
			}
			objects := t.Problem().Objects
			facts := encode.State(t.State(), objects)
			applicable := encode.Actions(actions, objects)
			if a.cfg.JSON {
				a.printJSON(map[string]interface{}{
					"run":        r,
					"generation": t.Generation(),
					"facts":      nonNil(facts),
					"applicable": nonNil(applicable),
				})
				return nil
			}
			fmt.Fprintf(a.out, "run %s (%s/%s) generation %d\n", r.ID, r.Domain, r.Problem, t.Generation())
			fmt.Fprintln(a.out, "state:")
			for _, f := range facts {
				fmt.Fprintf(a.out, "  %s\n", f)
			}
			fmt.Fprintln(a.out, "applicable:")
			for _, act := range applicable {
				fmt.Fprintf(a.out, "  %s\n", act)
			}
			return nil
		},
	}
}

func newRunHistoryCmd(a *app) *cobra.Command {
	var (
		limit int
		facts bool
	)
	cmd := &cobra.Command{
		Use:   "history <run-id>",
		Short: "List the recorded generations of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			r, err := s.GetRun(args[0])
			if err != nil {
				return err
			}
			snaps, err := s.ListStates(r.ID, limit)
			if err != nil {
				return err
			}
			if a.cfg.JSON {
				if snaps == nil {
					snaps = []model.Snapshot{}
				}
				a.printJSON(snaps)
				return nil
			}
			for _, sn := range snaps {
				act := sn.Action
				if act == "" {
					act = "(init)"
				}
				fmt.Fprintf(a.out, "%4d  %s  %s  [%d facts]\n",
					sn.Generation, sn.CreatedAt.Local().Format("15:04:05"), act, len(sn.Facts))
				if facts {
					for _, f := range sn.Facts {
						fmt.Fprintf(a.out, "        %s\n", f)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum generations to show (0 = all)")
	cmd.Flags().BoolVar(&facts, "facts", false, "print the facts of every generation")
	return cmd
}

func newRunListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			runs, err := s.ListRuns()
			if err != nil {
				return err
			}
			if a.cfg.JSON {
				if runs == nil {
					runs = []model.Run{}
				}
				a.printJSON(runs)
				return nil
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.out, "no runs")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(a.out, "%s  %s/%s  %s\n", r.ID, r.Domain, r.Problem, r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newRunRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <run-id>",
		Short: "Delete a run and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			r, err := s.GetRun(args[0])
			if err != nil {
				return err
			}
			if err := s.DeleteRun(r.ID); err != nil {
				return err
			}
			if a.cfg.JSON {
				a.printJSON(map[string]string{"deleted": r.ID})
				return nil
			}
			fmt.Fprintf(a.out, "deleted %s\n", r.ID)
			return nil
		},
	}
}
