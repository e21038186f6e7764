package descriptor

import (
	"fmt"
	"strings"

	"github.com/daviddao/liftplan/pkg/encode"
	"github.com/daviddao/liftplan/pkg/model"
)

// Describe renders a loaded domain, and the problem when p is not nil, for
// humans.
func Describe(d *model.Domain, p *model.Problem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "--- Domain ---\n")
	fmt.Fprintf(&b, "name: %s\n", d.Name)
	fmt.Fprintf(&b, "types:\n")
	for _, t := range d.Hierarchy.Types() {
		fmt.Fprintf(&b, "  %s: %s\n", t, strings.Join(d.Hierarchy.Subtypes(t), " "))
	}
	fmt.Fprintf(&b, "predicates:\n")
	for _, name := range d.PredicateNames() {
		pred := d.Predicates[name]
		fmt.Fprintf(&b, "  %s(%s)\n", name, strings.Join(pred.Params, ", "))
	}
	if len(d.Constants) > 0 {
		fmt.Fprintf(&b, "constants:\n")
		for _, c := range d.Constants {
			fmt.Fprintf(&b, "  %s: %s\n", c.Name, c.Type)
		}
	}
	fmt.Fprintf(&b, "actions:\n")
	for _, s := range d.Schemas {
		describeSchema(&b, s)
	}

	if p == nil {
		return b.String()
	}
	fmt.Fprintf(&b, "\n--- Problem ---\n")
	fmt.Fprintf(&b, "name: %s\n", p.Name)
	fmt.Fprintf(&b, "objects:\n")
	for i, o := range p.Objects.Objects() {
		fmt.Fprintf(&b, "  %d %s: %s\n", i, o.Name, o.Type)
	}
	fmt.Fprintf(&b, "init:\n")
	for _, f := range encode.State(p.Init, p.Objects) {
		fmt.Fprintf(&b, "  %s\n", f)
	}
	if len(p.Goal) > 0 {
		fmt.Fprintf(&b, "goal:\n")
		for _, g := range p.Goal {
			f := encode.Fact(g.Fact, p.Objects)
			if g.Sign == model.Negative {
				f = "(not " + f + ")"
			}
			fmt.Fprintf(&b, "  %s\n", f)
		}
	}
	return b.String()
}

func describeSchema(b *strings.Builder, s *model.Schema) {
	vars := func(vs []model.Variable) string {
		parts := make([]string, len(vs))
		for i, v := range vs {
			parts[i] = v.Name + ":" + v.Type
		}
		return strings.Join(parts, " ")
	}
	fmt.Fprintf(b, "  %s(%s)", s.Name, vars(s.Params()))
	if ex := s.Existentials(); len(ex) > 0 {
		fmt.Fprintf(b, " exists %s", vars(ex))
	}
	b.WriteByte('\n')

	atom := func(pred string, idx []int) string {
		names := make([]string, len(idx))
		for i, v := range idx {
			names[i] = s.Vars[v].Name
		}
		if len(names) == 0 {
			return pred
		}
		return pred + "(" + strings.Join(names, " ") + ")"
	}
	pre := make([]string, len(s.Pre))
	for i, l := range s.Pre {
		pre[i] = l.Sign.String() + atom(l.Predicate, l.Vars)
	}
	fmt.Fprintf(b, "    pre: %s\n", strings.Join(pre, " "))
	eff := make([]string, len(s.Effects))
	for i, e := range s.Effects {
		sign := "+"
		if e.Kind == model.Delete {
			sign = "-"
		}
		eff[i] = sign + atom(e.Predicate, e.Vars)
	}
	fmt.Fprintf(b, "    eff: %s\n", strings.Join(eff, " "))
}
