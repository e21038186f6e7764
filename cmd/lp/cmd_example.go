package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daviddao/liftplan/pkg/descriptor"
	"github.com/daviddao/liftplan/pkg/encode"
	"github.com/daviddao/liftplan/pkg/model"
)

// transition is the effect of one applicable action on the initial state.
type transition struct {
	Action  string   `json:"action"`
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

func newExampleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "example",
		Short: "Run the bundled logistics example",
		Long: `Load the bundled logistics domain and problem, list the applicable
actions in the initial state and show what each of them changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, p, err := descriptor.Example()
			if err != nil {
				return err
			}
			t, err := a.taskFor(d, p)
			if err != nil {
				return err
			}
			actions, err := t.ApplicableActions(cmd.Context())
			if err != nil {
				return err
			}

			var steps []transition
			start := t.State()
			for _, name := range d.SchemaNames() {
				for _, params := range actions[name] {
					next, err := t.NextState(name, params, true)
					if err != nil {
						return err
					}
					added, removed := next.Diff(start)
					steps = append(steps, transition{
						Action:  encode.Action(name, params, p.Objects),
						Added:   renderFacts(added, p.Objects),
						Removed: renderFacts(removed, p.Objects),
					})
				}
			}

			if a.cfg.JSON {
				a.printJSON(map[string]interface{}{
					"task":        summarize(d, p),
					"transitions": steps,
				})
				return nil
			}
			fmt.Fprint(a.out, descriptor.Describe(d, p))
			fmt.Fprintf(a.out, "\n--- Applicable (%d) ---\n", len(steps))
			for _, s := range steps {
				var parts []string
				for _, f := range s.Added {
					parts = append(parts, "+"+f)
				}
				for _, f := range s.Removed {
					parts = append(parts, "-"+f)
				}
				if len(parts) == 0 {
					parts = []string{"no change"}
				}
				fmt.Fprintf(a.out, "%s: %s\n", s.Action, strings.Join(parts, " "))
			}
			return nil
		},
	}
}

func renderFacts(facts []model.Fact, objects *model.ObjectTable) []string {
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = encode.Fact(f, objects)
	}
	return out
}
