package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daviddao/liftplan/pkg/encode"
	"github.com/daviddao/liftplan/pkg/model"
	"github.com/daviddao/liftplan/pkg/oracle"
)

type verifyReport struct {
	Actions    int              `json:"actions"`
	Mismatches []verifyMismatch `json:"mismatches"`
}

type verifyMismatch struct {
	Schema  string   `json:"schema"`
	Missing []string `json:"missing,omitempty"`
	Extra   []string `json:"extra,omitempty"`
}

func newVerifyCmd(a *app) *cobra.Command {
	var domainPath, problemPath string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Cross-check applicable actions against a Datalog evaluation",
		Long: `Compute the applicable actions of the initial state twice, once with the
join and once by evaluating an equivalent Mangle program, and report any
disagreement. Exits 2 on a mismatch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.loadTask(domainPath, problemPath)
			if err != nil {
				return err
			}
			got, err := t.ApplicableActions(cmd.Context())
			if err != nil {
				return err
			}
			p := t.Problem()
			want, err := oracle.ApplicableActions(p, t.State())
			if err != nil {
				return fmt.Errorf("oracle: %w", err)
			}

			report := verifyReport{Mismatches: []verifyMismatch{}}
			for _, ts := range got {
				report.Actions += len(ts)
			}
			for _, m := range oracle.Diff(got, want) {
				report.Mismatches = append(report.Mismatches, verifyMismatch{
					Schema:  m.Schema,
					Missing: renderActions(m.Schema, m.Missing, p.Objects),
					Extra:   renderActions(m.Schema, m.Extra, p.Objects),
				})
			}

			if a.cfg.JSON {
				a.printJSON(report)
			} else {
				for _, m := range report.Mismatches {
					for _, s := range m.Missing {
						fmt.Fprintf(a.out, "missing %s\n", s)
					}
					for _, s := range m.Extra {
						fmt.Fprintf(a.out, "extra   %s\n", s)
					}
				}
				if len(report.Mismatches) == 0 {
					fmt.Fprintf(a.out, "ok: %d ground actions agree\n", report.Actions)
				}
			}
			if len(report.Mismatches) > 0 {
				return &exitError{code: 2, msg: fmt.Sprintf("verify: %d schema(s) disagree", len(report.Mismatches))}
			}
			return nil
		},
	}
	taskFlags(cmd, &domainPath, &problemPath, true)
	return cmd
}

func renderActions(name string, ts []model.Tuple, objects *model.ObjectTable) []string {
	var out []string
	for _, t := range ts {
		out = append(out, encode.Action(name, t, objects))
	}
	return out
}
