package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daviddao/liftplan/pkg/encode"
)

func newApplicableCmd(a *app) *cobra.Command {
	var domainPath, problemPath string
	cmd := &cobra.Command{
		Use:   "applicable",
		Short: "List the ground actions applicable in the initial state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.loadTask(domainPath, problemPath)
			if err != nil {
				return err
			}
			actions, err := t.ApplicableActions(cmd.Context())
			if err != nil {
				return err
			}
			lines := encode.Actions(actions, t.Problem().Objects)
			if a.cfg.JSON {
				a.printJSON(nonNil(lines))
				return nil
			}
			a.printLines(lines)
			return nil
		},
	}
	taskFlags(cmd, &domainPath, &problemPath, true)
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	var domainPath, problemPath, action string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether a ground action is applicable in the initial state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.loadTask(domainPath, problemPath)
			if err != nil {
				return err
			}
			name, params, err := parseAction(t, action)
			if err != nil {
				return err
			}
			ok, err := t.IsApplicable(name, params)
			if err != nil {
				return err
			}
			if a.cfg.JSON {
				a.printJSON(map[string]interface{}{
					"action":     encode.Action(name, params, t.Problem().Objects),
					"applicable": ok,
				})
				return nil
			}
			fmt.Fprintln(a.out, ok)
			return nil
		},
	}
	taskFlags(cmd, &domainPath, &problemPath, true)
	cmd.Flags().StringVarP(&action, "action", "a", "", `ground action, e.g. "(drive t1 l1 l2 c1)"`)
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

func newNextCmd(a *app) *cobra.Command {
	var (
		domainPath, problemPath, action string
		noCheck                         bool
	)
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the state reached by applying a ground action to the initial state",
		Long: `Print the state reached by applying a ground action to the initial state.

An inapplicable action leaves the state unchanged unless --no-check is
given, in which case the effects are applied regardless of preconditions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.loadTask(domainPath, problemPath)
			if err != nil {
				return err
			}
			name, params, err := parseAction(t, action)
			if err != nil {
				return err
			}
			next, err := t.NextState(name, params, !noCheck)
			if err != nil {
				return err
			}
			lines := encode.State(next, t.Problem().Objects)
			if a.cfg.JSON {
				a.printJSON(nonNil(lines))
				return nil
			}
			a.printLines(lines)
			return nil
		},
	}
	taskFlags(cmd, &domainPath, &problemPath, true)
	cmd.Flags().StringVarP(&action, "action", "a", "", `ground action, e.g. "(drive t1 l1 l2 c1)"`)
	cmd.Flags().BoolVar(&noCheck, "no-check", false, "apply effects without checking preconditions")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
