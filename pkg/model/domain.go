package model

import (
	"fmt"
	"sort"
)

// Predicate is a predicate signature: a name and ordered parameter types.
type Predicate struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
}

// Arity returns the number of parameters.
func (p Predicate) Arity() int { return len(p.Params) }

// Domain is a validated planning domain. It is immutable after NewDomain
// returns and safe to share between goroutines.
type Domain struct {
	Name       string
	Hierarchy  TypeHierarchy
	Predicates map[string]Predicate
	Constants  []Object
	Schemas    []*Schema

	byName map[string]*Schema
}

// NewDomain validates its inputs and builds the name→schema index. Any
// inconsistency aborts the whole domain.
func NewDomain(name string, h TypeHierarchy, preds []Predicate, constants []Object, schemas []*Schema) (*Domain, error) {
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("domain %s: %w", name, err)
	}
	d := &Domain{
		Name:       name,
		Hierarchy:  h,
		Predicates: make(map[string]Predicate, len(preds)),
		Constants:  append([]Object(nil), constants...),
		Schemas:    append([]*Schema(nil), schemas...),
		byName:     make(map[string]*Schema, len(schemas)),
	}
	for _, p := range preds {
		if _, dup := d.Predicates[p.Name]; dup {
			return nil, fmt.Errorf("domain %s: %w: predicate %q", name, ErrDuplicateName, p.Name)
		}
		for _, t := range p.Params {
			if !h.Has(t) {
				return nil, fmt.Errorf("domain %s: predicate %s: %w: %q", name, p.Name, ErrUnknownType, t)
			}
		}
		d.Predicates[p.Name] = p
	}
	for _, c := range constants {
		if !h.Has(c.Type) {
			return nil, fmt.Errorf("domain %s: constant %s: %w: %q", name, c.Name, ErrUnknownType, c.Type)
		}
	}
	for _, s := range schemas {
		if _, dup := d.byName[s.Name]; dup {
			return nil, fmt.Errorf("domain %s: %w: action %q", name, ErrDuplicateName, s.Name)
		}
		if err := d.checkSchema(s); err != nil {
			return nil, fmt.Errorf("domain %s: action %s: %w", name, s.Name, err)
		}
		d.byName[s.Name] = s
	}
	return d, nil
}

func (d *Domain) checkSchema(s *Schema) error {
	seenExistential := false
	for _, v := range s.Vars {
		if !d.Hierarchy.Has(v.Type) {
			return fmt.Errorf("variable %s: %w: %q", v.Name, ErrUnknownType, v.Type)
		}
		switch v.Class {
		case Parameter:
			if seenExistential {
				return fmt.Errorf("parameter %s declared after an existential variable", v.Name)
			}
		case Existential:
			seenExistential = true
		}
	}
	for _, l := range s.Pre {
		if err := d.checkAtom(l.Predicate, l.Vars, len(s.Vars)); err != nil {
			return fmt.Errorf("precondition: %w", err)
		}
	}
	params := s.NumParams()
	for _, e := range s.Effects {
		if err := d.checkAtom(e.Predicate, e.Vars, params); err != nil {
			return fmt.Errorf("effect: %w", err)
		}
	}
	return nil
}

func (d *Domain) checkAtom(pred string, vars []int, numVars int) error {
	p, ok := d.Predicates[pred]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPredicate, pred)
	}
	if len(vars) != p.Arity() {
		return fmt.Errorf("%s: %w: got %d arguments, want %d", pred, ErrArityMismatch, len(vars), p.Arity())
	}
	for _, v := range vars {
		if v < 0 || v >= numVars {
			return fmt.Errorf("%s: %w: index %d", pred, ErrUnknownVariable, v)
		}
	}
	return nil
}

// Schema returns the action schema called name.
func (d *Domain) Schema(name string) (*Schema, error) {
	s, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionSchema, name)
	}
	return s, nil
}

// SchemaNames returns the schema names, sorted.
func (d *Domain) SchemaNames() []string {
	out := make([]string, 0, len(d.byName))
	for n := range d.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// PredicateNames returns the predicate names, sorted.
func (d *Domain) PredicateNames() []string {
	out := make([]string, 0, len(d.Predicates))
	for n := range d.Predicates {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// GoalLiteral is a possibly negated ground atom of the goal. The core
// carries goals for callers but never evaluates them.
type GoalLiteral struct {
	Sign Sign `json:"sign"`
	Fact Fact `json:"fact"`
}

// Problem is a validated problem instance bound to its domain.
type Problem struct {
	Name    string
	Domain  *Domain
	Objects *ObjectTable
	Init    State
	Goal    []GoalLiteral
}

// NewProblem validates objects, initial facts and goals against d. objects
// must already contain the domain constants.
func NewProblem(d *Domain, name string, objects []Object, init []Fact, goal []GoalLiteral) (*Problem, error) {
	if d == nil {
		return nil, fmt.Errorf("problem %s: %w", name, ErrNoDomain)
	}
	for _, o := range objects {
		if !d.Hierarchy.Has(o.Type) {
			return nil, fmt.Errorf("problem %s: object %s: %w: %q", name, o.Name, ErrUnknownType, o.Type)
		}
	}
	table, err := NewObjectTable(objects)
	if err != nil {
		return nil, fmt.Errorf("problem %s: %w", name, err)
	}
	p := &Problem{Name: name, Domain: d, Objects: table, Goal: append([]GoalLiteral(nil), goal...)}
	for _, f := range init {
		if err := p.CheckFact(f); err != nil {
			return nil, fmt.Errorf("problem %s: init: %w", name, err)
		}
	}
	for _, g := range goal {
		if err := p.CheckFact(g.Fact); err != nil {
			return nil, fmt.Errorf("problem %s: goal: %w", name, err)
		}
	}
	p.Init = NewState(init...)
	return p, nil
}

// CheckFact verifies that f names a declared predicate with the right arity
// over valid objects.
func (p *Problem) CheckFact(f Fact) error {
	pred, ok := p.Domain.Predicates[f.Predicate]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPredicate, f.Predicate)
	}
	if len(f.Args) != pred.Arity() {
		return fmt.Errorf("%s: %w: got %d arguments, want %d", f.Predicate, ErrArityMismatch, len(f.Args), pred.Arity())
	}
	if err := p.Objects.Check(f.Args...); err != nil {
		return fmt.Errorf("%s: %w", f.Predicate, err)
	}
	return nil
}
