// Package oracle computes applicable actions a second, independent way: it
// translates the problem, a state and every schema into a Datalog program
// and lets the Mangle engine evaluate it. The join engine's results are
// checked against it.
//
// Each schema becomes one rule. Its head carries the parameter variables;
// its body has one type atom per variable, every positive literal and every
// negated literal. Type atoms bind every variable, so negation is always
// safe and unconstrained variables range over all compatible objects.
package oracle

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"github.com/daviddao/liftplan/pkg/model"
)

// Datalog names are generated, so domain names never need escaping.
type naming struct {
	predNames []string
	preds     map[string]string
	types     map[string]string
	actions   map[string]string
	arity     map[string]int
}

func newNaming(d *model.Domain) *naming {
	n := &naming{
		preds:   make(map[string]string),
		types:   make(map[string]string),
		actions: make(map[string]string),
		arity:   make(map[string]int),
	}
	names := d.PredicateNames()
	n.predNames = names
	for i, name := range names {
		n.preds[name] = fmt.Sprintf("pred%d", i)
	}
	for i, t := range d.Hierarchy.Types() {
		n.types[t] = fmt.Sprintf("ty%d", i)
	}
	for i, s := range d.Schemas {
		sym := fmt.Sprintf("act%d", i)
		n.actions[s.Name] = sym
		n.arity[sym] = max(1, s.NumParams())
	}
	return n
}

func args(vals []string) string {
	if len(vals) == 0 {
		return "(0)"
	}
	return "(" + strings.Join(vals, ", ") + ")"
}

func ids(t model.Tuple) []string {
	out := make([]string, len(t))
	for i, id := range t {
		out[i] = fmt.Sprint(int(id))
	}
	return out
}

func varNames(idx []int) []string {
	out := make([]string, len(idx))
	for i, v := range idx {
		out[i] = fmt.Sprintf("V%d", v)
	}
	return out
}

func declare(b *strings.Builder, sym string, arity int) {
	vs := make([]string, max(1, arity))
	for i := range vs {
		vs[i] = fmt.Sprintf("X%d", i)
	}
	fmt.Fprintf(b, "Decl %s(%s).\n", sym, strings.Join(vs, ", "))
}

// Program renders the Datalog program for state.
func Program(p *model.Problem, state model.State) string {
	d := p.Domain
	n := newNaming(d)
	var b strings.Builder

	for _, name := range n.predNames {
		declare(&b, n.preds[name], d.Predicates[name].Arity())
	}
	for _, t := range d.Hierarchy.Types() {
		declare(&b, n.types[t], 1)
	}
	for _, s := range d.Schemas {
		declare(&b, n.actions[s.Name], s.NumParams())
	}

	for _, t := range d.Hierarchy.Types() {
		objs, _ := p.Objects.OfType(d.Hierarchy, t)
		for _, id := range objs {
			fmt.Fprintf(&b, "%s(%d).\n", n.types[t], int(id))
		}
	}
	for _, f := range state.Facts() {
		sym, ok := n.preds[f.Predicate]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s%s.\n", sym, args(ids(f.Args)))
	}

	for _, s := range d.Schemas {
		var body []string
		for i, v := range s.Vars {
			body = append(body, fmt.Sprintf("%s(V%d)", n.types[v.Type], i))
		}
		for _, l := range s.Pre {
			atom := n.preds[l.Predicate] + args(varNames(l.Vars))
			if l.Sign == model.Negative {
				atom = "!" + atom
			}
			body = append(body, atom)
		}
		params := make([]int, s.NumParams())
		for i := range params {
			params[i] = i
		}
		head := n.actions[s.Name] + args(varNames(params))
		if len(body) == 0 {
			fmt.Fprintf(&b, "%s.\n", head)
			continue
		}
		fmt.Fprintf(&b, "%s :- %s.\n", head, strings.Join(body, ", "))
	}
	return b.String()
}

// ApplicableActions evaluates the program for state and returns, per schema,
// the sorted parameter tuples of its head relation.
func ApplicableActions(p *model.Problem, state model.State) (map[string][]model.Tuple, error) {
	src := Program(p, state)
	unit, err := parse.Unit(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("oracle: parse: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("oracle: analysis: %w", err)
	}
	store := factstore.NewSimpleInMemoryStore()
	if _, err := engine.EvalProgramWithStats(info, store); err != nil {
		return nil, fmt.Errorf("oracle: eval: %w", err)
	}

	n := newNaming(p.Domain)
	out := make(map[string][]model.Tuple, len(p.Domain.Schemas))
	for _, s := range p.Domain.Schemas {
		sym := n.actions[s.Name]
		params := s.NumParams()
		rows := []model.Tuple{}
		err := store.GetFacts(ast.NewQuery(ast.PredicateSym{Symbol: sym, Arity: n.arity[sym]}), func(a ast.Atom) error {
			t := make(model.Tuple, params)
			for i := 0; i < params; i++ {
				c, ok := a.Args[i].(ast.Constant)
				if !ok || c.Type != ast.NumberType {
					return fmt.Errorf("%s: unexpected term %v", s.Name, a.Args[i])
				}
				t[i] = model.ObjectID(c.NumValue)
			}
			rows = append(rows, t)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("oracle: %w", err)
		}
		slices.SortFunc(rows, model.CompareTuples)
		rows = slices.CompactFunc(rows, model.Tuple.Equal)
		out[s.Name] = rows
	}
	return out, nil
}

// Mismatch lists the tuples on which two applicability maps disagree for
// one schema.
type Mismatch struct {
	Schema  string        `json:"schema"`
	Missing []model.Tuple `json:"missing,omitempty"` // in want, not in got
	Extra   []model.Tuple `json:"extra,omitempty"`   // in got, not in want
}

// Diff compares got against want schema by schema. Schemas are reported in
// sorted order; an absent schema counts as empty.
func Diff(got, want map[string][]model.Tuple) []Mismatch {
	names := map[string]struct{}{}
	for k := range got {
		names[k] = struct{}{}
	}
	for k := range want {
		names[k] = struct{}{}
	}
	var out []Mismatch
	for _, name := range sortedKeys(names) {
		m := Mismatch{
			Schema:  name,
			Missing: minus(want[name], got[name]),
			Extra:   minus(got[name], want[name]),
		}
		if len(m.Missing) > 0 || len(m.Extra) > 0 {
			out = append(out, m)
		}
	}
	return out
}

func minus(a, b []model.Tuple) []model.Tuple {
	in := make(map[string]struct{}, len(b))
	for _, t := range b {
		in[t.Key()] = struct{}{}
	}
	var out []model.Tuple
	for _, t := range a {
		if _, ok := in[t.Key()]; !ok {
			out = append(out, t)
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
