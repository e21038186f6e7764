package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daviddao/liftplan/pkg/descriptor"
	"github.com/daviddao/liftplan/pkg/encode"
	"github.com/daviddao/liftplan/pkg/model"
)

type taskSummary struct {
	Domain     string            `json:"domain"`
	Types      []string          `json:"types"`
	Predicates []model.Predicate `json:"predicates"`
	Constants  []model.Object    `json:"constants,omitempty"`
	Schemas    []*model.Schema   `json:"schemas"`
	Problem    *problemSummary   `json:"problem,omitempty"`
}

type problemSummary struct {
	Name    string         `json:"name"`
	Objects []model.Object `json:"objects"`
	Init    []string       `json:"init"`
	Goal    []string       `json:"goal,omitempty"`
}

func summarize(d *model.Domain, p *model.Problem) taskSummary {
	s := taskSummary{
		Domain:    d.Name,
		Types:     d.Hierarchy.Types(),
		Constants: d.Constants,
		Schemas:   d.Schemas,
	}
	for _, name := range d.PredicateNames() {
		s.Predicates = append(s.Predicates, d.Predicates[name])
	}
	if p == nil {
		return s
	}
	ps := &problemSummary{
		Name:    p.Name,
		Objects: p.Objects.Objects(),
		Init:    encode.State(p.Init, p.Objects),
	}
	for _, g := range p.Goal {
		f := encode.Fact(g.Fact, p.Objects)
		if g.Sign == model.Negative {
			f = "(not " + f + ")"
		}
		ps.Goal = append(ps.Goal, f)
	}
	s.Problem = ps
	return s
}

func newPrintCmd(a *app) *cobra.Command {
	var domainPath, problemPath string
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Describe a domain and, optionally, a problem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := descriptor.LoadDomainFile(domainPath)
			if err != nil {
				return err
			}
			var p *model.Problem
			if problemPath != "" {
				if p, err = descriptor.LoadProblemFile(d, problemPath); err != nil {
					return err
				}
			}
			if a.cfg.JSON {
				a.printJSON(summarize(d, p))
				return nil
			}
			fmt.Fprint(a.out, descriptor.Describe(d, p))
			return nil
		},
	}
	taskFlags(cmd, &domainPath, &problemPath, false)
	return cmd
}
