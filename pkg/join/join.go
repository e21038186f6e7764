// Package join enumerates the variable assignments that satisfy the
// precondition of a lifted action schema in a state.
//
// The engine is a naive left-to-right join. A frontier of partial
// assignments starts from a seed (all unbound, or with the action
// parameters already bound) and is narrowed by each positive literal in
// declaration order. Variables that no positive literal mentions are then
// expanded over every object of a compatible type, negative literals filter
// the complete assignments, and the existential columns are projected away.
package join

import (
	"fmt"
	"slices"

	"github.com/daviddao/liftplan/pkg/model"
)

// Query is one join over a schema's precondition.
type Query struct {
	Schema    *model.Schema
	Hierarchy model.TypeHierarchy
	Objects   *model.ObjectTable
	State     model.State
	// Seed pre-binds variables. A nil seed leaves every variable unbound.
	Seed model.Assignment
}

// Stats describes the work done by one join.
type Stats struct {
	Steps    int // positive literals joined
	PeakRows int // largest frontier seen
	Expanded int // assignments after free-variable expansion
	Results  int
}

// Run returns the distinct parameter tuples whose assignment satisfies the
// precondition, sorted lexicographically.
func Run(q Query) ([]model.Tuple, error) {
	out, _, err := RunWithStats(q)
	return out, err
}

// RunWithStats is Run, also reporting the size of intermediate results.
func RunWithStats(q Query) ([]model.Tuple, Stats, error) {
	var stats Stats
	s := q.Schema
	n := len(s.Vars)

	seed := q.Seed
	if seed == nil {
		seed = model.NewAssignment(n)
	}
	if len(seed) != n {
		return nil, stats, fmt.Errorf("join %s: %w: seed has %d slots, schema has %d variables", s.Name, model.ErrArityMismatch, len(seed), n)
	}

	accepted := make([]map[string]struct{}, n)
	for i, v := range s.Vars {
		c, err := q.Hierarchy.Closure(v.Type)
		if err != nil {
			return nil, stats, fmt.Errorf("join %s: variable %s: %w", s.Name, v.Name, err)
		}
		accepted[i] = c
	}
	for i, slot := range seed {
		id, ok := slot.Get()
		if !ok {
			continue
		}
		if err := q.Objects.Check(id); err != nil {
			return nil, stats, fmt.Errorf("join %s: %w", s.Name, err)
		}
		if _, ok := accepted[i][q.Objects.Type(id)]; !ok {
			return nil, stats, nil
		}
	}

	for _, l := range s.Pre {
		if l.Sign == model.Positive && len(l.Vars) == 0 && !q.State.Has(model.Fact{Predicate: l.Predicate}) {
			return nil, stats, nil
		}
	}

	j := &joiner{q: q, accepted: accepted}
	frontier := []model.Assignment{seed.Clone()}
	stats.PeakRows = 1
	for _, st := range compile(s, seed) {
		frontier = j.join(st, frontier)
		stats.Steps++
		stats.PeakRows = max(stats.PeakRows, len(frontier))
		if len(frontier) == 0 {
			return nil, stats, nil
		}
	}

	frontier, err := j.expand(frontier)
	if err != nil {
		return nil, stats, fmt.Errorf("join %s: %w", s.Name, err)
	}
	stats.Expanded = len(frontier)

	for _, l := range s.Pre {
		if l.Sign != model.Negative {
			continue
		}
		frontier = j.exclude(l, frontier)
		if len(frontier) == 0 {
			return nil, stats, nil
		}
	}

	out := project(frontier, s.NumParams())
	stats.Results = len(out)
	return out, stats, nil
}

// step is a positive literal compiled against the set of variables bound
// before it runs.
type step struct {
	pred string
	vars []int
	// check holds atom positions whose variable is already bound.
	check []int
	// same pairs an atom position with an earlier position of the same
	// literal that carries the same, not yet bound, variable.
	same [][2]int
	// bind holds atom positions that bind their variable.
	bind []int
}

// compile turns the non-nullary positive literals into steps. The bound set
// is known statically: it starts from the seed and grows with every step.
func compile(s *model.Schema, seed model.Assignment) []step {
	bound := make([]bool, len(s.Vars))
	for i, slot := range seed {
		bound[i] = slot.IsBound()
	}
	var steps []step
	for _, l := range s.Pre {
		if l.Sign != model.Positive || len(l.Vars) == 0 {
			continue
		}
		st := step{pred: l.Predicate, vars: l.Vars}
		first := make(map[int]int, len(l.Vars))
		for pos, v := range l.Vars {
			switch earlier, seen := first[v]; {
			case bound[v]:
				st.check = append(st.check, pos)
			case seen:
				st.same = append(st.same, [2]int{pos, earlier})
			default:
				first[v] = pos
				st.bind = append(st.bind, pos)
			}
		}
		for _, v := range l.Vars {
			bound[v] = true
		}
		steps = append(steps, st)
	}
	return steps
}

type joiner struct {
	q        Query
	accepted []map[string]struct{}
}

// typed reports whether every argument of args is an object whose type is
// compatible with the variable at the same position.
func (j *joiner) typed(vars []int, args model.Tuple) bool {
	if len(args) != len(vars) {
		return false
	}
	for pos, v := range vars {
		id := args[pos]
		if !j.q.Objects.Valid(id) {
			return false
		}
		if _, ok := j.accepted[v][j.q.Objects.Type(id)]; !ok {
			return false
		}
	}
	return true
}

func (j *joiner) join(st step, frontier []model.Assignment) []model.Assignment {
	var next []model.Assignment
	for _, f := range j.q.State.WithPredicate(st.pred) {
		if !j.typed(st.vars, f.Args) {
			continue
		}
		if !consistent(st, f.Args) {
			continue
		}
		for _, a := range frontier {
			if !agrees(st, f.Args, a) {
				continue
			}
			b := a.Clone()
			for _, pos := range st.bind {
				b[st.vars[pos]] = model.Bound(f.Args[pos])
			}
			next = append(next, b)
		}
	}
	return next
}

func consistent(st step, args model.Tuple) bool {
	for _, p := range st.same {
		if args[p[0]] != args[p[1]] {
			return false
		}
	}
	return true
}

func agrees(st step, args model.Tuple, a model.Assignment) bool {
	for _, pos := range st.check {
		id, _ := a[st.vars[pos]].Get()
		if id != args[pos] {
			return false
		}
	}
	return true
}

// expand binds every remaining free variable to each object of a compatible
// type, taking the Cartesian product.
func (j *joiner) expand(frontier []model.Assignment) ([]model.Assignment, error) {
	candidates := make(map[int][]model.ObjectID)
	var out []model.Assignment
	for _, a := range frontier {
		rows := []model.Assignment{a}
		for i, slot := range a {
			if slot.IsBound() {
				continue
			}
			objs, ok := candidates[i]
			if !ok {
				var err error
				objs, err = j.q.Objects.OfType(j.q.Hierarchy, j.q.Schema.Vars[i].Type)
				if err != nil {
					return nil, err
				}
				candidates[i] = objs
			}
			var grown []model.Assignment
			for _, r := range rows {
				for _, id := range objs {
					b := r.Clone()
					b[i] = model.Bound(id)
					grown = append(grown, b)
				}
			}
			rows = grown
		}
		out = append(out, rows...)
	}
	return out, nil
}

// exclude drops every assignment under which the literal's atom holds.
func (j *joiner) exclude(l model.Literal, frontier []model.Assignment) []model.Assignment {
	kept := frontier[:0:0]
	args := make(model.Tuple, len(l.Vars))
	for _, a := range frontier {
		for pos, v := range l.Vars {
			args[pos], _ = a[v].Get()
		}
		if !j.q.State.Has(model.Fact{Predicate: l.Predicate, Args: args}) {
			kept = append(kept, a)
		}
	}
	return kept
}

func project(frontier []model.Assignment, params int) []model.Tuple {
	seen := make(map[string]struct{}, len(frontier))
	out := make([]model.Tuple, 0, len(frontier))
	for _, a := range frontier {
		t, ok := a.Tuple(params)
		if !ok {
			continue
		}
		k := t.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	slices.SortFunc(out, model.CompareTuples)
	return out
}
